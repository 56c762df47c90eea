// Package orient predicts the coarse orientation (0, 90, 180, 270) of a page image.
package orient

import (
	"context"
	"fmt"
	"io"

	"github.com/bmharper/pdfdeskew/skew"
	"gocv.io/x/gocv"
)

// Orientations lists the angles that a predictor may return, in the order that they are tried
var Orientations = []int{0, 90, 180, 270}

// Engine names, as used in configuration
const (
	EngineTextorient = "textorient"
	EngineTesseract  = "tesseract"
	EngineNone       = "none"
)

// Prediction is the orientation of the content of an image.
// Orientation is how far (in degrees) the content has been turned clockwise, and
// Rotate is the clockwise rotation that brings it back upright.
type Prediction struct {
	Orientation int `json:"orientation"`
	Rotate      int `json:"rotate"`
}

// NewPrediction fills in Rotate from the orientation
func NewPrediction(orientation int) Prediction {
	return Prediction{
		Orientation: orientation,
		Rotate:      (360 - orientation) % 360,
	}
}

// Predictor is an orientation predictor that owns native resources
type Predictor interface {
	PredictOrientation(ctx context.Context, img gocv.Mat) (Prediction, error)
	io.Closer
}

// New creates the predictor for the named engine
func New(engine, language string) (Predictor, error) {
	switch engine {
	case EngineTextorient, "":
		return NewTextorient()
	case EngineTesseract:
		return NewTesseract(language)
	case EngineNone:
		return None{}, nil
	}
	return nil, fmt.Errorf("unknown orientation engine %q", engine)
}

func checkPrediction(p Prediction) (Prediction, error) {
	if !skew.ValidOrientation(p.Orientation) {
		return Prediction{}, fmt.Errorf("%w (got %v)", skew.ErrInvalidOrientation, p.Orientation)
	}
	return p, nil
}
