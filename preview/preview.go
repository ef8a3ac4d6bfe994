// Package preview renders generated images inline in the terminal
// using the iTerm2 inline-image escape sequence (OSC 1337). Terminals
// that do not implement the protocol ignore the sequence; callers can
// gate on Supported to skip the payload entirely.
package preview

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultWidthCols is the default rendered width, in terminal cells.
const DefaultWidthCols = 40

// Supported reports whether the current terminal is known to implement
// the inline-image protocol. Conservative: only terminals that
// advertise themselves are accepted.
func Supported() bool {
	if os.Getenv("TERM_PROGRAM") == "iTerm.app" {
		return true
	}
	if os.Getenv("LC_TERMINAL") == "iTerm2" {
		return true
	}
	return strings.Contains(os.Getenv("TERM"), "wezterm")
}

// Encode reads the image at path and returns the complete escape
// sequence that renders it inline at widthCols terminal cells wide.
func Encode(path string, widthCols int) (string, error) {
	if widthCols <= 0 {
		widthCols = DefaultWidthCols
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read preview image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("preview image %s is empty", path)
	}
	b64 := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("\x1b]1337;File=inline=1;width=%d:%s\a", widthCols, b64), nil
}

// Fprint writes the inline preview for path to w, followed by a
// newline so the prompt does not overlap the image.
func Fprint(w io.Writer, path string, widthCols int) error {
	seq, err := Encode(path, widthCols)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, seq); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
