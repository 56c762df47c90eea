package pdfdeskew

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestImageDefaults(t *testing.T) {
	doc := blankDocument(1)
	defer doc.Close()
	img := doc.Pages()[0].Images()[0]
	require.Equal(t, 0, img.Orientation())
	require.Equal(t, 0.0, img.SkewAngle())
	require.False(t, img.HasOrientation())
	require.False(t, img.HasSkew())
	require.False(t, img.Predicted())
	require.NoError(t, img.Invalid())
	require.Equal(t, 200, img.Width())
	require.Equal(t, 100, img.Height())
}

func TestImagePredictions(t *testing.T) {
	doc := blankDocument(1)
	defer doc.Close()
	img := doc.Pages()[0].Images()[0]

	require.NoError(t, img.PredictOrientation(context.Background(), &scriptedOrientation{script: []int{270}}))
	require.Equal(t, 270, img.Orientation())
	require.Equal(t, 90, img.Rotate())
	require.Equal(t, orient.NewPrediction(270), img.Prediction())
	require.True(t, img.HasOrientation())
	require.False(t, img.Predicted())

	require.NoError(t, img.PredictSkew(fixedSkew{angle: 1.5}))
	require.Equal(t, 1.5, img.SkewAngle())
	require.True(t, img.Predicted())
}

type badOrientation struct{}

func (badOrientation) PredictOrientation(ctx context.Context, img gocv.Mat) (orient.Prediction, error) {
	return orient.Prediction{Orientation: 45}, nil
}

func TestImageRejectsInvalidOrientation(t *testing.T) {
	doc := blankDocument(1)
	defer doc.Close()
	img := doc.Pages()[0].Images()[0]

	err := img.PredictOrientation(context.Background(), badOrientation{})
	require.ErrorIs(t, err, skew.ErrInvalidOrientation)
	require.False(t, img.HasOrientation())
	require.Equal(t, 0, img.Orientation())

	// A contract violation is not a per-image failure, so the whole pass stops
	err = doc.PredictOrientation(context.Background(), badOrientation{})
	require.ErrorIs(t, err, skew.ErrInvalidOrientation)
}

func TestEmptyImageIsInvalid(t *testing.T) {
	img := NewImage(gocv.NewMat(), nil)
	defer img.Close()
	require.ErrorIs(t, img.Invalid(), skew.ErrInvalidImage)
	require.ErrorIs(t, img.PredictSkew(fixedSkew{}), skew.ErrInvalidImage)
}

func TestDocumentCounts(t *testing.T) {
	doc := blankDocument(2, 0, 3)
	defer doc.Close()
	require.Equal(t, 3, doc.NumPages())
	require.Equal(t, 5, doc.NumImages())
	require.Empty(t, doc.Pages()[1].Images())
	require.Equal(t, 2, doc.Pages()[1].Number())
}

func TestDocumentPredictionPasses(t *testing.T) {
	doc := blankDocument(2, 1)
	defer doc.Close()
	ctx := context.Background()
	require.NoError(t, doc.PredictOrientation(ctx, &scriptedOrientation{script: []int{0, 180, 90}}))
	require.NoError(t, doc.PredictSkew(ctx, fixedSkew{angle: -2}, 2))
	require.Equal(t, []int{0, 180, 90}, doc.Orientations())
	require.Equal(t, []float64{-2, -2, -2}, doc.SkewAngles())
}

func TestPredictSkewStopsOnError(t *testing.T) {
	doc := blankDocument(3, 3)
	defer doc.Close()
	err := doc.PredictSkew(context.Background(), fixedSkew{err: context.DeadlineExceeded}, 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPredictSkewSkipsInvalidImages(t *testing.T) {
	doc := blankDocument(2)
	defer doc.Close()
	doc.Pages()[0].images[1].Close()
	doc.Pages()[0].images[1] = newInvalidImage([]byte("junk"), skew.ErrInvalidImage)
	require.NoError(t, doc.PredictSkew(context.Background(), fixedSkew{angle: 3}, 0))
	require.True(t, doc.Pages()[0].Images()[0].HasSkew())
	require.False(t, doc.Pages()[0].Images()[1].HasSkew())
}

func TestReportJSON(t *testing.T) {
	doc := blankDocument(1, 0, 2)
	defer doc.Close()
	doc.pages[0].rotation = 90
	ctx := context.Background()
	require.NoError(t, doc.PredictOrientation(ctx, &scriptedOrientation{script: []int{180, 0, 270}}))
	require.NoError(t, doc.PredictSkew(ctx, fixedSkew{angle: 0.5}, 1))

	report := doc.Report()
	require.Len(t, report, 3)
	require.Equal(t, PageReport{PageNumber: 1, Rotation: 90, SkewAngles: []float64{0.5}, Orientations: []int{180}}, report[0])
	require.Equal(t, PageReport{PageNumber: 2, Rotation: 0, SkewAngles: []float64{}, Orientations: []int{}}, report[1])

	encoded, err := json.Marshal(report[1:])
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"page_number": 2, "rotation": 0, "skew_angles": [], "orientations": []},
		{"page_number": 3, "rotation": 0, "skew_angles": [0.5, 0.5], "orientations": [0, 270]}
	]`, string(encoded))
}

func TestReportMarksInvalidImages(t *testing.T) {
	doc := blankDocument(3)
	defer doc.Close()
	doc.pages[0].images[1].Close()
	doc.pages[0].images[1] = newInvalidImage([]byte("junk"), skew.ErrInvalidImage)
	predictAll(t, doc, []int{90, 90}, 2)

	report := doc.Report()
	require.Equal(t, []float64{2, 0, 2}, report[0].SkewAngles)
	require.Equal(t, []int{90, 0, 90}, report[0].Orientations)
	require.Equal(t, []int{1}, report[0].InvalidImages)

	encoded, err := json.Marshal(report)
	require.NoError(t, err)
	require.JSONEq(t, `[{"page_number": 1, "rotation": 0, "skew_angles": [2, 0, 2], "orientations": [90, 0, 90], "invalid_images": [1]}]`, string(encoded))
}
