package core

import "fmt"

// Byte size constants for formatting and size calculations.
const (
	BytesPerKB int64 = 1024
	BytesPerMB       = BytesPerKB * 1024
	BytesPerGB       = BytesPerMB * 1024
)

// FormatBytes renders a byte count as a human-readable string using
// binary units, e.g. "4.3 GB" or "512 B".
func FormatBytes(n int64) string {
	switch {
	case n >= BytesPerGB:
		return fmt.Sprintf("%.1f GB", float64(n)/float64(BytesPerGB))
	case n >= BytesPerMB:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(BytesPerMB))
	case n >= BytesPerKB:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(BytesPerKB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
