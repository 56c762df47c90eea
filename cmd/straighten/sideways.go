package main

import (
	"context"

	"github.com/bmharper/pdfdeskew"
	"github.com/bmharper/pdfdeskew/orient"
	"gocv.io/x/gocv"
)

// noSideways turns 90 and 270 degree predictions into 0, so pages keep their shape
type noSideways struct {
	pdfdeskew.OrientationPredictor
}

func (n noSideways) PredictOrientation(ctx context.Context, img gocv.Mat) (orient.Prediction, error) {
	p, err := n.OrientationPredictor.PredictOrientation(ctx, img)
	if err != nil {
		return p, err
	}
	if p.Orientation == 90 || p.Orientation == 270 {
		return orient.NewPrediction(0), nil
	}
	return p, nil
}
