package framebuf

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when a buffer decodes to no pixels.
var ErrEmptyImage = errors.New("empty image")

// Mat reads a decoded OpenCV BGR matrix as linear RGB.
// Close releases the native memory.
type Mat struct {
	mat gocv.Mat
}

// DecodeJPEG decodes JPEG (or PNG) bytes with OpenCV.
func DecodeJPEG(data []byte) (*Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Empty() {
		img.Close()
		return nil, ErrEmptyImage
	}
	return &Mat{mat: img}, nil
}

// Size returns the matrix dimensions.
func (m *Mat) Size() (int, int) {
	return m.mat.Cols(), m.mat.Rows()
}

// ReadPixel returns the linear color at (x, y); outside reads as black.
func (m *Mat) ReadPixel(x, y int) (float64, float64, float64) {
	if x < 0 || y < 0 || x >= m.mat.Cols() || y >= m.mat.Rows() {
		return 0, 0, 0
	}
	v := m.mat.GetVecbAt(y, x)
	return srgbLUT[v[2]], srgbLUT[v[1]], srgbLUT[v[0]]
}

// Close releases the matrix.
func (m *Mat) Close() error {
	return m.mat.Close()
}
