//go:build cgo

package imageproc

import (
	"image"
	"io"

	"github.com/pixiv/go-libjpeg/jpeg"
)

// Progressive reports whether encodeJPEG writes progressive scans.
const Progressive = true

func encodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.EncoderOptions{
		Quality:         JPEGQuality,
		OptimizeCoding:  true,
		ProgressiveMode: true,
	})
}
