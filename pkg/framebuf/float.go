package framebuf

// Float is a linear RGB buffer, row-major from the top-left corner.
type Float struct {
	W, H int
	Pix  []float32 // 3 values per pixel
}

// NewFloat allocates a black w×h buffer.
func NewFloat(w, h int) *Float {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Float{W: w, H: h, Pix: make([]float32, 3*w*h)}
}

// Size returns the buffer dimensions.
func (f *Float) Size() (int, int) {
	return f.W, f.H
}

// ReadPixel returns the color at (x, y); outside reads as black.
func (f *Float) ReadPixel(x, y int) (float64, float64, float64) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return 0, 0, 0
	}
	i := 3 * (y*f.W + x)
	return float64(f.Pix[i]), float64(f.Pix[i+1]), float64(f.Pix[i+2])
}

// Set writes the color at (x, y).
func (f *Float) Set(x, y int, r, g, b float64) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	i := 3 * (y*f.W + x)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = float32(r), float32(g), float32(b)
}

// Fill paints every pixel with one color.
func (f *Float) Fill(r, g, b float64) {
	for i := 0; i+2 < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = float32(r), float32(g), float32(b)
	}
}

// Valid reports whether Pix matches the dimensions.
func (f *Float) Valid() bool {
	return f.W >= 0 && f.H >= 0 && len(f.Pix) == 3*f.W*f.H
}
