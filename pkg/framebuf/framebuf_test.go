package framebuf

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/teslashibe/go-realcam/pkg/metering"
)

var (
	_ metering.Framebuffer = (*Image)(nil)
	_ metering.Framebuffer = (*Float)(nil)
	_ metering.Framebuffer = (*Mat)(nil)
)

func grayImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestSRGBToLinear(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{0.5, 0.2140},
		{0.04, 0.04 / 12.92},
	}
	for _, tt := range tests {
		if got := SRGBToLinear(tt.in); math.Abs(got-tt.want) > 1e-4 {
			t.Errorf("SRGBToLinear(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestImage_ReadPixel(t *testing.T) {
	img := grayImage(4, 3, 255)
	img.Set(1, 2, color.RGBA{0, 0, 0, 255})
	fb := FromImage(img)

	w, h := fb.Size()
	if w != 4 || h != 3 {
		t.Errorf("Expected 4x3, got %dx%d", w, h)
	}
	if r, g, b := fb.ReadPixel(0, 0); r != 1 || g != 1 || b != 1 {
		t.Errorf("Expected white, got %v %v %v", r, g, b)
	}
	if r, _, _ := fb.ReadPixel(1, 2); r != 0 {
		t.Errorf("Expected black, got %v", r)
	}
	if r, _, _ := fb.ReadPixel(9, 9); r != 0 {
		t.Errorf("Expected black outside bounds, got %v", r)
	}
}

func TestImage_SubImageOrigin(t *testing.T) {
	img := grayImage(10, 10, 0)
	img.Set(6, 6, color.RGBA{255, 255, 255, 255})
	sub := img.SubImage(image.Rect(5, 5, 10, 10))

	fb := FromImage(sub)
	if r, _, _ := fb.ReadPixel(1, 1); r != 1 {
		t.Errorf("Expected white at sub-image (1,1), got %v", r)
	}
}

func TestLoad_Formats(t *testing.T) {
	dir := t.TempDir()
	img := grayImage(8, 8, 128)

	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, img) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, img) },
		"tiff": func(b *bytes.Buffer) error { return tiff.Encode(b, img, nil) },
	}

	for format, enc := range encoders {
		var buf bytes.Buffer
		if err := enc(&buf); err != nil {
			t.Fatalf("%s encode failed: %v", format, err)
		}
		path := filepath.Join(dir, "frame."+format)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			t.Fatal(err)
		}

		fb, got, err := Load(path)
		if err != nil {
			t.Fatalf("%s: Load failed: %v", format, err)
		}
		if got != format {
			t.Errorf("Expected format %s, got %s", format, got)
		}
		r, _, _ := fb.ReadPixel(4, 4)
		if math.Abs(r-SRGBToLinear(128.0/255)) > 1e-9 {
			t.Errorf("%s: unexpected linear value %v", format, r)
		}
	}

	if _, _, err := Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestFloat(t *testing.T) {
	f := NewFloat(3, 2)
	f.Fill(0.25, 0.5, 0.75)
	f.Set(2, 1, 1, 1, 1)
	f.Set(5, 5, 1, 1, 1)

	if r, g, b := f.ReadPixel(0, 0); r != 0.25 || g != 0.5 || b != 0.75 {
		t.Errorf("Unexpected fill %v %v %v", r, g, b)
	}
	if r, _, _ := f.ReadPixel(2, 1); r != 1 {
		t.Errorf("Expected set pixel, got %v", r)
	}
	if !f.Valid() {
		t.Error("Expected valid buffer")
	}
	f.Pix = f.Pix[:5]
	if f.Valid() {
		t.Error("Expected invalid buffer after truncation")
	}
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, grayImage(16, 16, 200), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}

	m, err := DecodeJPEG(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeJPEG failed: %v", err)
	}
	defer m.Close()

	w, h := m.Size()
	if w != 16 || h != 16 {
		t.Errorf("Expected 16x16, got %dx%d", w, h)
	}
	r, g, b := m.ReadPixel(8, 8)
	want := SRGBToLinear(200.0 / 255)
	for _, v := range []float64{r, g, b} {
		if math.Abs(v-want) > 0.02 {
			t.Errorf("Expected ~%v, got %v", want, v)
		}
	}

	if _, err := DecodeJPEG([]byte("not an image")); err == nil {
		t.Error("Expected error for garbage input")
	}
}
