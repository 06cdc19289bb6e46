// Package framebuf adapts decoded images and raw pixel buffers to
// metering.Framebuffer. Readers return scene-linear RGB.
package framebuf

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// srgbLUT maps 8-bit sRGB codes to linear values.
var srgbLUT [256]float64

func init() {
	for i := range srgbLUT {
		srgbLUT[i] = SRGBToLinear(float64(i) / 255)
	}
}

// SRGBToLinear decodes one sRGB channel in [0,1].
func SRGBToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// Image reads an image.Image as linear RGB.
type Image struct {
	img    image.Image
	bounds image.Rectangle
}

// FromImage wraps img.
func FromImage(img image.Image) *Image {
	return &Image{img: img, bounds: img.Bounds()}
}

// Size returns the image dimensions.
func (m *Image) Size() (int, int) {
	return m.bounds.Dx(), m.bounds.Dy()
}

// ReadPixel returns the linear color at (x, y) relative to the image origin.
// Coordinates outside the image read as black.
func (m *Image) ReadPixel(x, y int) (float64, float64, float64) {
	p := image.Pt(x, y).Add(m.bounds.Min)
	if !p.In(m.bounds) {
		return 0, 0, 0
	}
	r, g, b, _ := m.img.At(p.X, p.Y).RGBA()
	return srgbLUT[r>>8], srgbLUT[g>>8], srgbLUT[b>>8]
}

// Decode reads any registered format: png, jpeg, bmp, tiff or webp.
func Decode(r io.Reader) (*Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), format, nil
}

// Load decodes an image file.
func Load(path string) (*Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return Decode(f)
}
