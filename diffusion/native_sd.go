//go:build sd && cgo

// Native backend over stable-diffusion.cpp.
//
// Prerequisites:
//  1. stable-diffusion.cpp compiled as a shared library
//  2. CGO_CFLAGS pointing at the header, CGO_LDFLAGS at the library
//
// Example:
//
//	CGO_CFLAGS="-I${SD_CPP_PATH}" \
//	CGO_LDFLAGS="-L${SD_CPP_PATH}/build -lstable-diffusion" \
//	CGO_ENABLED=1 go build -tags sd

package diffusion

/*
#cgo CFLAGS: -I${SRCDIR}/../vendor/stable-diffusion.cpp
#cgo LDFLAGS: -L${SRCDIR}/../vendor/stable-diffusion.cpp/build -lstable-diffusion

#include <stdlib.h>
#include <stdint.h>

// Declarations mirrored from stable-diffusion.h. The header itself is
// not included so this file parses without the vendored library tree;
// the linker resolves these against libstable-diffusion.
typedef void sd_ctx_t;
typedef struct {
	uint32_t width;
	uint32_t height;
	uint32_t channel;
	uint8_t* data;
} sd_image_t;

extern sd_ctx_t* localgen_sd_ctx_new(const char* model_path, int use_bf16, int n_threads);
extern void localgen_sd_ctx_free(sd_ctx_t* ctx);
extern sd_image_t* localgen_sd_txt2img(sd_ctx_t* ctx, const char* prompt,
	int width, int height, int steps, float cfg_scale, int64_t seed, int use_cfg);
extern void localgen_sd_image_free(sd_image_t* img);
extern const char* localgen_sd_backend_info();
*/
import "C"

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	devpkg "localgen/device"
)

// BackendAvailable reports whether the native inference runtime is
// linked into this binary.
func BackendAvailable() bool {
	return true
}

// BackendInfo describes the compiled-in backend for status surfaces.
func BackendInfo() string {
	return C.GoString(C.localgen_sd_backend_info())
}

type nativeLoader struct{}

// NewNativeLoader returns the Loader backed by stable-diffusion.cpp.
func NewNativeLoader() Loader {
	return nativeLoader{}
}

func (nativeLoader) Load(_ context.Context, spec LoadSpec) (Pipeline, error) {
	if _, err := os.Stat(spec.ArtifactPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, spec.ArtifactPath, err)
	}

	cPath := C.CString(spec.ArtifactPath)
	defer C.free(unsafe.Pointer(cPath))

	useBF16 := 0
	if spec.Precision == devpkg.BFloat16 {
		useBF16 = 1
	}

	ctx := C.localgen_sd_ctx_new(cPath, C.int(useBF16), C.int(runtime.NumCPU()))
	if ctx == nil {
		return nil, fmt.Errorf("%w: native context creation failed for %s", ErrModelLoad, spec.ModelID)
	}

	return &nativePipeline{ctx: ctx, spec: spec}, nil
}

// nativePipeline owns one sd_ctx_t. Not safe for concurrent Generate
// calls; the worker slot serializes access.
type nativePipeline struct {
	ctx  *C.sd_ctx_t
	spec LoadSpec
}

func (p *nativePipeline) Generate(_ context.Context, params PipelineParams) (*Output, error) {
	if p.ctx == nil {
		return nil, fmt.Errorf("%w: pipeline already closed", ErrGeneration)
	}
	if err := ValidatePipelineParams(params); err != nil {
		return nil, err
	}

	cPrompt := C.CString(params.Prompt)
	defer C.free(unsafe.Pointer(cPrompt))

	useCFG := 1
	cfg := params.GuidanceScale
	if cfg < 0 {
		useCFG = 0
		cfg = 0
	}

	img := C.localgen_sd_txt2img(p.ctx, cPrompt,
		C.int(params.Width), C.int(params.Height), C.int(params.Steps),
		C.float(cfg), C.int64_t(params.Seed), C.int(useCFG))
	if img == nil {
		return nil, fmt.Errorf("%w: txt2img returned null for %s", ErrGeneration, p.spec.ModelID)
	}
	defer C.localgen_sd_image_free(img)

	w := int(img.width)
	h := int(img.height)
	ch := int(img.channel)
	raw := C.GoBytes(unsafe.Pointer(img.data), C.int(w*h*ch))

	png, err := EncodePNG(raw, w, h, ch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return &Output{PNG: png, Width: w, Height: h, Seed: params.Seed}, nil
}

func (p *nativePipeline) Close() error {
	if p.ctx != nil {
		C.localgen_sd_ctx_free(p.ctx)
		p.ctx = nil
	}
	return nil
}
