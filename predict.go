package pdfdeskew

import (
	"context"
	"runtime"

	"github.com/bmharper/pdfdeskew/orient"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// Loader builds a Document from the bytes of a PDF
type Loader interface {
	Load(ctx context.Context, data []byte) (*Document, error)
}

// OrientationPredictor finds the coarse orientation of an image
type OrientationPredictor interface {
	PredictOrientation(ctx context.Context, img gocv.Mat) (orient.Prediction, error)
}

// SkewPredictor measures the fine skew of an upright image, in degrees
type SkewPredictor interface {
	PredictSkew(img gocv.Mat) (float64, error)
}

// Sink assembles corrected images into an output document, one page per image
type Sink interface {
	Write(images []CorrectedImage) ([]byte, error)
}

// PredictOrientation runs the orientation predictor over every image, in page order.
// OCR engines are not safe for concurrent use, so this runs on the calling goroutine.
func (d *Document) PredictOrientation(ctx context.Context, p OrientationPredictor) error {
	for _, page := range d.pages {
		for i, img := range page.images {
			if err := ctx.Err(); err != nil {
				return err
			}
			if img.invalid != nil {
				continue
			}
			if err := img.PredictOrientation(ctx, p); err != nil {
				if d.skip(page, i, err) {
					img.invalid = err
					continue
				}
				return err
			}
			d.verbose("orientation", "page", page.number, "image", i, "orientation", img.orientation)
		}
	}
	return nil
}

// PredictSkew runs the skew predictor over every image, with up to workers images at a time.
// If workers is zero or less, GOMAXPROCS is used.
func (d *Document) PredictSkew(ctx context.Context, p SkewPredictor, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultWorkers(workers))
	for _, page := range d.pages {
		for i, img := range page.images {
			if img.invalid != nil {
				continue
			}
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := img.PredictSkew(p); err != nil {
					if d.skip(page, i, err) {
						img.invalid = err
						return nil
					}
					return err
				}
				d.verbose("skew", "page", page.number, "image", i, "bytes", len(img.encoded), "angle", img.skewAngle)
				return nil
			})
		}
	}
	return g.Wait()
}

func defaultWorkers(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}

// Predictions are the per-image results of the prediction passes, in document order.
// A pass that was not run is omitted.
type Predictions struct {
	Orientation     []int        `json:"orientation,omitempty"`
	SkewOrientation []float64    `json:"skew_orientation,omitempty"`
	Pages           []PageReport `json:"pages,omitempty"`
}

// Predict loads the PDF and runs the selected prediction passes, without correcting anything
func (s *Straightener) Predict(ctx context.Context, pdf []byte, withOrientation, withSkew bool) (*Predictions, error) {
	doc, err := s.Loader.Load(ctx, pdf)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	doc.Verbose = s.Verbose
	doc.Logger = s.Logger

	p := &Predictions{}
	if withOrientation {
		if err := doc.PredictOrientation(ctx, s.Orientation); err != nil {
			return nil, err
		}
		p.Orientation = doc.Orientations()
	}
	if withSkew {
		if err := doc.PredictSkew(ctx, s.Skew, s.Workers); err != nil {
			return nil, err
		}
		p.SkewOrientation = doc.SkewAngles()
	}
	p.Pages = doc.Report()
	return p, nil
}
