package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension caps the longer edge of attachment images before they
// are shipped to the extraction API.
const DefaultMaxDimension = 2048

// Options holds configuration for image downscaling
type Options struct {
	MaxDimension int // Maximum width or height (default 2048)
	JPEGQuality  int // JPEG quality 1-100 (default 85)
}

// DefaultOptions returns default downscale options
func DefaultOptions() *Options {
	return &Options{
		MaxDimension: DefaultMaxDimension,
		JPEGQuality:  85,
	}
}

// Downscale shrinks an image so neither dimension exceeds the configured
// maximum, keeping the aspect ratio. Images already within bounds are
// returned unchanged. The output keeps the source format for PNG and JPEG;
// everything else is re-encoded as PNG.
func Downscale(imageData []byte, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= opts.MaxDimension && height <= opts.MaxDimension {
		return imageData, nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = opts.MaxDimension
		newHeight = int(float64(height) * float64(opts.MaxDimension) / float64(width))
	} else {
		newHeight = opts.MaxDimension
		newWidth = int(float64(width) * float64(opts.MaxDimension) / float64(height))
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.JPEGQuality})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}
