//go:build !cgo

package imageproc

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Progressive reports whether encodeJPEG writes progressive scans. The pure Go
// encoder only writes baseline JPEG.
const Progressive = false

func encodeJPEG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
}
