package diffusion

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// pngMagic identifies PNG data by its fixed signature.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Image handling errors.
var (
	ErrImageEmpty      = errors.New("diffusion: image data is empty")
	ErrImageNotPNG     = errors.New("diffusion: image data is not a valid PNG")
	ErrImageDecodeFail = errors.New("diffusion: failed to decode image")
	ErrImageBadSize    = errors.New("diffusion: invalid image dimensions")
)

// IsPNG reports whether data starts with the PNG signature.
func IsPNG(data []byte) bool {
	return len(data) >= len(pngMagic) && bytes.Equal(data[:len(pngMagic)], pngMagic)
}

// ValidateImageData checks that data is a decodable PNG. Catches
// truncated or garbage output from the native layer before it reaches
// disk.
func ValidateImageData(data []byte) error {
	if len(data) == 0 {
		return ErrImageEmpty
	}
	if !IsPNG(data) {
		return ErrImageNotPNG
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return nil
}

// EncodePNG encodes raw interleaved pixels (3 channels RGB or 4
// channels RGBA) to PNG.
func EncodePNG(pixels []byte, width, height, channels int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageBadSize, width, height)
	}
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrImageBadSize, channels)
	}
	if len(pixels) != width*height*channels {
		return nil, fmt.Errorf("%w: expected %d bytes for %dx%dx%d, got %d",
			ErrImageBadSize, width*height*channels, width, height, channels, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if channels == 4 {
		copy(img.Pix, pixels)
	} else {
		for i := 0; i < width*height; i++ {
			img.Pix[i*4+0] = pixels[i*3+0]
			img.Pix[i*4+1] = pixels[i*3+1]
			img.Pix[i*4+2] = pixels[i*3+2]
			img.Pix[i*4+3] = 0xFF
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return buf.Bytes(), nil
}

// DecodePNGSize returns the pixel dimensions of PNG data without
// decoding the full image.
func DecodePNGSize(data []byte) (int, int, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return cfg.Width, cfg.Height, nil
}

// ResizePNG scales PNG data to exactly width x height using CatmullRom
// resampling. The kernel is deterministic: identical input yields
// identical output bytes.
func ResizePNG(data []byte, width, height int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return buf.Bytes(), nil
}
