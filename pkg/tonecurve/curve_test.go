package tonecurve

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearCurve(t *testing.T, n int) Curve {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i) / float64(n-1)
	}
	c, err := New("linear", "", values)
	require.NoError(t, err)
	return c
}

func TestForward_IndexesByFloor(t *testing.T) {
	c, err := New("steps", "", []float64{0, 0.25, 0.5, 0.75, 1})
	require.NoError(t, err)

	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.24, 0},
		{0.25, 0.25},
		{0.49, 0.25},
		{0.5, 0.5},
		{0.99, 0.75},
		{1, 1},
		{-3, 0},
		{7, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Forward(c, tt.in), "Forward(%v)", tt.in)
	}
}

func TestInverse_StepSearch(t *testing.T) {
	c, err := New("steps", "", []float64{0.1, 0.2, 0.2, 0.4, 0.8})
	require.NoError(t, err)

	tests := []struct {
		display float64
		want    float64
	}{
		{0.05, 1.0 / 5}, // below the first entry
		{0.1, 1.0 / 5},
		{0.15, 1.0 / 5},
		{0.2, 3.0 / 5}, // last index of the plateau, plus one
		{0.5, 4.0 / 5},
		{0.8, 1},
		{2, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Inverse(c, tt.display), 1e-12, "Inverse(%v)", tt.display)
	}
}

func TestRoundTrip_WithinOneStep(t *testing.T) {
	set, err := LoadBuiltIn(nil)
	require.NoError(t, err)

	curves := []Curve{linearCurve(t, 2), linearCurve(t, 17), linearCurve(t, 1000)}
	for _, k := range set.Keys() {
		curves = append(curves, set.Look(k))
	}

	for _, c := range curves {
		step := c.Step()
		for i := 0; i <= 500; i++ {
			x := float64(i) / 500
			got := Inverse(c, Forward(c, x))
			assert.LessOrEqual(t, math.Abs(got-x), step+1e-12, "%s: x=%v got=%v", c.Name, x, got)
		}
	}
}

func TestNew_RejectsBadTables(t *testing.T) {
	_, err := New("short", "", []float64{0.5})
	assert.ErrorIs(t, err, ErrCurveData)

	_, err = New("falling", "", []float64{0, 0.5, 0.4})
	assert.ErrorIs(t, err, ErrCurveData)

	_, err = New("nan", "", []float64{0, math.NaN(), 1})
	assert.ErrorIs(t, err, ErrCurveData)
}

func TestNew_CopiesValues(t *testing.T) {
	values := []float64{0, 0.5, 1}
	c, err := New("copy", "", values)
	require.NoError(t, err)

	values[1] = 0.9
	assert.Equal(t, 0.5, c.At(1))
}

func TestEncodeDecode(t *testing.T) {
	assert.InDelta(t, 10/16.5, Encode(MiddleGray), 1e-12)
	assert.InDelta(t, 0, Encode(MiddleGray*math.Exp2(-10)), 1e-12)
	assert.InDelta(t, 1, Encode(MiddleGray*math.Exp2(6.5)), 1e-12)

	for _, v := range []float64{0.001, 0.18, 1, 12} {
		assert.InDelta(t, v, Decode(Encode(v)), 1e-9)
	}
}

func TestLoadBuiltIn_SevenLooks(t *testing.T) {
	set, err := LoadBuiltIn(nil)
	require.NoError(t, err)

	assert.Equal(t, 7, set.Count())
	for _, info := range set.List() {
		assert.GreaterOrEqual(t, info.Samples, 2, info.Key)
		assert.NotEmpty(t, info.Name, info.Key)
	}
	assert.Equal(t, "Filmic Base Contrast", set.Base().Name)
}

func TestLook_Fallback(t *testing.T) {
	set, err := LoadBuiltIn(nil)
	require.NoError(t, err)

	high := set.Look("high_contrast")
	assert.Equal(t, "Filmic High Contrast", high.Name)

	byName := set.Look("filmic high contrast")
	assert.Equal(t, high.Name, byName.Name)

	unknown := set.Look("Sepia Dream")
	assert.Equal(t, set.Base().Name, unknown.Name)

	_, ok := set.Find("Sepia Dream")
	assert.False(t, ok)
}

func TestNewSet_RequiresBase(t *testing.T) {
	c := linearCurve(t, 4)
	_, err := NewSet(map[string]Curve{"linear": c}, "missing", nil)
	assert.ErrorIs(t, err, ErrNoBaseLook)
}

func TestWithDir_AddsAndRejects(t *testing.T) {
	set, err := LoadBuiltIn(nil)
	require.NoError(t, err)

	dir := t.TempDir()
	good := `{"name":"Studio","description":"custom","values":[0,0.3,0.6,1]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "studio.json"), []byte(good), 0644))

	extended, err := set.WithDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, extended.Count())
	assert.Equal(t, "Studio", extended.Look("studio").Name)
	assert.Equal(t, 7, set.Count(), "receiver set must not change")

	bad := `{"name":"Broken","values":[1,0]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(bad), 0644))
	_, err = set.WithDir(dir)
	assert.ErrorIs(t, err, ErrCurveData)
}

func TestLoadEmbedded_Missing(t *testing.T) {
	_, err := LoadEmbedded("does_not_exist")
	assert.ErrorIs(t, err, ErrCurveData)
}
