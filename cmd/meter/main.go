// meter: Meter an image file the way the engine meters a viewport
// Prints the reading, the display value through a look, and the exposure
// the controller would converge toward.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-realcam/internal/log"
	"github.com/teslashibe/go-realcam/pkg/camera"
	"github.com/teslashibe/go-realcam/pkg/debug"
	"github.com/teslashibe/go-realcam/pkg/exposure"
	"github.com/teslashibe/go-realcam/pkg/framebuf"
	"github.com/teslashibe/go-realcam/pkg/metering"
	"github.com/teslashibe/go-realcam/pkg/tonecurve"
)

var (
	mode         = flag.String("mode", "full_window", "center_spot, full_window, center_weighted")
	grid         = flag.Int("grid", metering.DefaultGrid, "Full window grid size")
	rings        = flag.Int("rings", metering.DefaultRings, "Center weighted ring count")
	threshold    = flag.Float64("threshold", 1.0, "Discard samples brighter than this")
	look         = flag.String("look", camera.DefaultSettings().Look, "Look used for the display value")
	compensation = flag.Float64("ev", 0, "Exposure compensation in stops")
	useGocv      = flag.Bool("gocv", false, "Decode JPEG files with OpenCV")
	asJSON       = flag.Bool("json", false, "Print JSON")
	verbose      = flag.Bool("v", false, "Print every sample")
)

// Report is the JSON output
type Report struct {
	File     string           `json:"file"`
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Reading  metering.Reading `json:"reading"`
	Look     string           `json:"look"`
	Control  exposure.Result  `json:"control"`
	Exposure float64          `json:"exposure"` // fixed point of the loop
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: meter [flags] image...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	debug.Metering = *verbose
	log.Init("warn")

	m, err := metering.ParseMode(*mode)
	if err != nil {
		log.Fatal("bad mode", "error", err)
	}
	opts := metering.Options{Mode: m, GridSize: *grid, RingCount: *rings, Threshold: *threshold}

	looks, err := tonecurve.LoadBuiltIn(log.L())
	if err != nil {
		log.Fatal("failed to load looks", "error", err)
	}
	curve := looks.Look(*look)
	sampler := metering.NewSampler(opts, log.L())

	exitCode := 0
	for _, path := range flag.Args() {
		report, err := meterFile(path, sampler, curve)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", path, err)
			exitCode = 1
			continue
		}
		if *asJSON {
			json.NewEncoder(os.Stdout).Encode(report)
			continue
		}
		printReport(report)
	}
	os.Exit(exitCode)
}

func meterFile(path string, sampler *metering.Sampler, curve tonecurve.Curve) (*Report, error) {
	var fb metering.Framebuffer
	ext := strings.ToLower(filepath.Ext(path))
	if *useGocv && (ext == ".jpg" || ext == ".jpeg") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		mat, err := framebuf.DecodeJPEG(data)
		if err != nil {
			return nil, err
		}
		defer mat.Close()
		fb = mat
	} else {
		img, _, err := framebuf.Load(path)
		if err != nil {
			return nil, err
		}
		fb = img
	}

	reading, err := sampler.Meter(fb)
	if err != nil {
		return nil, err
	}

	// the file is taken as drawn at exposure 0
	params := exposure.Params{
		Curve:        curve,
		Compensation: *compensation,
		Min:          camera.MinExposureLimit,
		Max:          camera.MaxExposureLimit,
	}
	res := exposure.NewController(exposure.DefaultTuning()).Step(reading.Luminance, 0, params)

	w, h := fb.Size()
	return &Report{
		File:     path,
		Width:    w,
		Height:   h,
		Reading:  reading,
		Look:     curve.Name,
		Control:  res,
		Exposure: res.Future / 2,
	}, nil
}

func printReport(r *Report) {
	fmt.Printf("📷 %s (%dx%d)\n", r.File, r.Width, r.Height)
	fmt.Printf("   mode:      %s\n", r.Reading.Mode)
	fmt.Printf("   luminance: %.4f (%d of %d samples", r.Reading.Luminance, len(r.Reading.Samples), r.Reading.Candidates)
	if r.Reading.Fallback {
		fmt.Print(", unfiltered fallback")
	}
	fmt.Println(")")
	fmt.Printf("   display:   %.4f through %q (target %.4f)\n", r.Control.Display, r.Look, r.Control.Target)
	if r.Control.Held {
		fmt.Println("   ✅ inside the dead zone, exposure holds")
	} else {
		fmt.Printf("   exposure:  %+.3f (next frame %+.3f)\n", r.Exposure, r.Control.Exposure)
	}
	if *verbose {
		for _, s := range r.Reading.Samples {
			fmt.Printf("     (%4d,%4d) %.4f w=%.2f\n", s.X, s.Y, s.Luminance, s.Weight)
		}
	}
}
