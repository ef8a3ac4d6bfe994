//go:build linux && cgo

package device

import (
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlProbe caches the NVML query for the process lifetime. Device
// topology does not change while we run, and repeated Init/Shutdown
// cycles are needlessly expensive.
var nvmlProbe = sync.OnceValues(func() (bool, string) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return false, ""
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS || count == 0 {
		return false, ""
	}

	dev, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		// A device exists even if we cannot name it.
		return true, ""
	}
	name, ret := dev.GetName()
	if ret != nvml.SUCCESS {
		return true, ""
	}
	return true, name
})

// probeCUDA reports whether a discrete NVIDIA accelerator is present,
// and its marketing name when available.
func probeCUDA() (bool, string) {
	return nvmlProbe()
}
