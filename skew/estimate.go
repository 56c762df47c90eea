// Package skew measures and removes the residual rotation of scanned pages.
//
// Skew is estimated from the long straight lines in an image (text block edges,
// rules, table borders), and removed by rotating the image onto a canvas that is
// large enough to hold every source pixel.
package skew

import (
	"math"
	"slices"

	"gocv.io/x/gocv"
)

const deg2Rad = math.Pi / 180
const rad2Deg = 180 / math.Pi

// Parameters to ExtractLines and EstimateFromLines
type Params struct {
	CannyLow          float64 // Gradient magnitude below which a pixel is never an edge
	CannyHigh         float64 // Gradient magnitude above which a pixel is always an edge
	HoughRho          float64 // Distance resolution of the Hough accumulator, in pixels
	HoughThetaDegrees float64 // Angular resolution of the Hough accumulator
	HoughThreshold    int     // Minimum number of votes for a line
	MinLineLength     float64 // Shorter segments are discarded
	MaxLineGap        float64 // Largest gap between points that are joined into one segment
	AxisThreshold     float64 // Lines further than this (in degrees) from the horizontal axis do not vote on the skew
}

// Create a new Params with defaults
func NewParams() *Params {
	return &Params{
		CannyLow:          50,
		CannyHigh:         150,
		HoughRho:          1,
		HoughThetaDegrees: 1,
		HoughThreshold:    100,
		MinLineLength:     120,
		MaxLineGap:        10,
		AxisThreshold:     10,
	}
}

// Estimator predicts skew with a fixed set of parameters
type Estimator struct {
	Params *Params
}

func NewEstimator(params *Params) *Estimator {
	if params == nil {
		params = NewParams()
	}
	return &Estimator{Params: params}
}

func (e *Estimator) PredictSkew(img gocv.Mat) (float64, error) {
	return Estimate(img, e.Params)
}

// Estimate returns the skew of the image in degrees.
// A positive value means the content has been rotated clockwise.
func Estimate(img gocv.Mat, params *Params) (float64, error) {
	lines, err := ExtractLines(img, params)
	if err != nil {
		return 0, err
	}
	return EstimateFromLines(lines, params), nil
}

// EstimateFromLines returns the median deviation from horizontal of the lines that lie within
// params.AxisThreshold degrees of the horizontal axis. With no such lines, the result is 0.
func EstimateFromLines(lines []Line, params *Params) float64 {
	if params == nil {
		params = NewParams()
	}
	deviations := make([]float64, 0, len(lines))
	for _, l := range lines {
		if l.degenerate() {
			continue
		}
		if dev, ok := axisDeviation(l.Angle(), params.AxisThreshold); ok {
			deviations = append(deviations, dev)
		}
	}
	if len(deviations) == 0 {
		return 0
	}
	return median(deviations)
}

// axisDeviation folds a direction in (-180, 180] onto (-90, 90], so that a segment
// whose endpoints are listed right-to-left measures the same as left-to-right.
func axisDeviation(angle, threshold float64) (float64, bool) {
	dev := angle
	if angle > 90 {
		dev = angle - 180
	} else if angle <= -90 {
		dev = angle + 180
	}
	return dev, math.Abs(dev) < threshold
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
