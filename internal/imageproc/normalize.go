// Package imageproc prepares uploaded photos for the hosted models.
package imageproc

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	MaxWidth    = 1024
	MaxHeight   = 1024
	JPEGQuality = 85
)

// Normalize re-encodes data as progressive JPEG bounded to MaxWidth x MaxHeight, keeping
// the aspect ratio. If that fails it tries once more without resizing.
func Normalize(data []byte) ([]byte, error) {
	out, err := encode(data, true)
	if err == nil {
		return out, nil
	}

	out, retryErr := encode(data, false)
	if retryErr != nil {
		return nil, fmt.Errorf("failed to normalize image: %w", retryErr)
	}
	return out, nil
}

func encode(data []byte, resize bool) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("image encoder panicked: %v", r)
		}
	}()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if resize {
		img = fit(img)
	}

	var buf bytes.Buffer
	if err := encodeJPEG(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fit never upscales.
func fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= MaxWidth && b.Dy() <= MaxHeight {
		return img
	}
	return imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)
}
