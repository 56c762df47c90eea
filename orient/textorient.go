package orient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bmharper/pdfdeskew/internal/raster"
	"github.com/bmharper/pdfdeskew/skew"
	"github.com/bmharper/textorient"
	"gocv.io/x/gocv"
)

var errClosed = errors.New("orientation predictor is closed")

// Textorient predicts orientation with the textorient neural network
type Textorient struct {
	mu     sync.Mutex
	orient *textorient.Orient
}

func NewTextorient() (*Textorient, error) {
	o, err := textorient.NewOrient()
	if err != nil {
		return nil, err
	}
	return &Textorient{orient: o}, nil
}

func (t *Textorient) PredictOrientation(ctx context.Context, img gocv.Mat) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if img.Empty() {
		return Prediction{}, skew.ErrInvalidImage
	}
	src, err := raster.ToCimg(img)
	if err != nil {
		return Prediction{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.orient == nil {
		return Prediction{}, errClosed
	}
	angle, err := t.orient.GetImageOrientation(src)
	if err != nil {
		return Prediction{}, err
	}
	return fromTextorientAngle(angle)
}

// Close frees the network. It is safe to call more than once.
func (t *Textorient) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.orient != nil {
		t.orient.Close()
		t.orient = nil
	}
	return nil
}

// fromTextorientAngle maps textorient's class to an orientation.
// Angle90 is undone by a counter-clockwise turn, which is what orientation 90 means here.
func fromTextorientAngle(angle int) (Prediction, error) {
	switch angle {
	case textorient.Angle0:
		return NewPrediction(0), nil
	case textorient.Angle90:
		return NewPrediction(90), nil
	case textorient.Angle180:
		return NewPrediction(180), nil
	case textorient.Angle270:
		return NewPrediction(270), nil
	}
	return Prediction{}, fmt.Errorf("%w (textorient class %v)", skew.ErrInvalidOrientation, angle)
}
