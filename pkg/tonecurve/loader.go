package tonecurve

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed data/*.json
var embeddedCurves embed.FS

// BaseLookKey is the key of the look unknown names fall back to.
const BaseLookKey = "base_contrast"

// LoadEmbedded loads a single built-in curve by key (e.g., "high_contrast").
func LoadEmbedded(key string) (Curve, error) {
	filename := fmt.Sprintf("data/%s.json", key)
	data, err := embeddedCurves.ReadFile(filename)
	if err != nil {
		return Curve{}, fmt.Errorf("%w: look %q not found: %v", ErrCurveData, key, err)
	}

	return parseCurveJSON(key, data)
}

// ListEmbedded returns the keys of all built-in curves.
func ListEmbedded() ([]string, error) {
	entries, err := embeddedCurves.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list embedded curves: %v", ErrCurveData, err)
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			keys = append(keys, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}

	return keys, nil
}

// LoadFromFile loads a curve from a JSON file on disk.
// The file name without extension becomes the look key.
func LoadFromFile(path string) (string, Curve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Curve{}, fmt.Errorf("%w: failed to read curve file: %v", ErrCurveData, err)
	}

	key := strings.TrimSuffix(filepath.Base(path), ".json")
	c, err := parseCurveJSON(key, data)
	return key, c, err
}

// parseCurveJSON parses JSON data into a Curve.
func parseCurveJSON(key string, data []byte) (Curve, error) {
	var raw CurveData
	if err := json.Unmarshal(data, &raw); err != nil {
		return Curve{}, fmt.Errorf("%w: failed to parse look %q: %v", ErrCurveData, key, err)
	}

	name := raw.Name
	if name == "" {
		name = key
	}
	return New(name, raw.Description, raw.Values)
}
