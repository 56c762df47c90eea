package orient

import (
	"context"

	"gocv.io/x/gocv"
)

// None predicts that every image is upright
type None struct{}

func (None) PredictOrientation(ctx context.Context, img gocv.Mat) (Prediction, error) {
	return NewPrediction(0), ctx.Err()
}

func (None) Close() error {
	return nil
}
