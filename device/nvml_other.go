//go:build !linux || !cgo

package device

// probeCUDA always reports unavailable off Linux. go-nvml dlopens
// libnvidia-ml.so, so the probe only works where that library exists;
// everywhere else the MPS and CPU paths cover generation.
func probeCUDA() (bool, string) {
	return false, ""
}
