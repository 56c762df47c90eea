// Package pdfdeskew makes the pages of scanned PDF documents upright and straight.
//
// Every page image is turned to the nearest right angle, and then rotated by its
// fine skew, so that text lines run horizontally.
package pdfdeskew

import (
	"context"
	"log/slog"

	"github.com/bmharper/pdfdeskew/internal/raster"
	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
)

// Straightener runs the whole pipeline: load, predict orientation, predict skew, correct, write
type Straightener struct {
	Loader      Loader
	Orientation OrientationPredictor
	Skew        SkewPredictor
	Sink        Sink
	Workers     int          // Images processed at once during skew prediction and correction
	Verbose     bool         // If true, log every page
	Logger      *slog.Logger // If nil, slog.Default() is used
}

// Result is a straightened PDF, together with what was found on each page of the source
type Result struct {
	PDF    []byte
	Report []PageReport
}

// NewStraightener uses pdfcpu to read and write, and Hough line skew estimation.
// If orientation is nil, every page is assumed to be upright.
func NewStraightener(orientation OrientationPredictor, params *skew.Params) *Straightener {
	if orientation == nil {
		orientation = orient.None{}
	}
	return &Straightener{
		Loader:      &PDFLoader{},
		Orientation: orientation,
		Skew:        skew.NewEstimator(params),
		Sink:        NewPDFSink(),
	}
}

func (s *Straightener) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Analyze loads the PDF and runs both prediction passes. The caller must Close the document.
func (s *Straightener) Analyze(ctx context.Context, pdf []byte) (*Document, error) {
	doc, err := s.Loader.Load(ctx, pdf)
	if err != nil {
		return nil, err
	}
	doc.Verbose = s.Verbose
	doc.Logger = s.Logger
	if err := doc.PredictOrientation(ctx, s.Orientation); err != nil {
		doc.Close()
		return nil, err
	}
	if err := doc.PredictSkew(ctx, s.Skew, s.Workers); err != nil {
		doc.Close()
		return nil, err
	}
	if s.Verbose {
		for _, page := range doc.Pages() {
			for i, img := range page.Images() {
				s.logger().Info("page", "page", page.Number(), "image", i, "bytes", len(img.Encoded()),
					"orientation", img.Orientation(), "angle", img.SkewAngle())
			}
		}
	}
	return doc, nil
}

// Straighten returns a new version of the PDF, with every page upright and straight
func (s *Straightener) Straighten(ctx context.Context, pdf []byte) (*Result, error) {
	doc, err := s.Analyze(ctx, pdf)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	out, err := s.Write(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &Result{
		PDF:    out,
		Report: doc.Report(),
	}, nil
}

// Write corrects an analyzed document, and passes the result to the sink
func (s *Straightener) Write(ctx context.Context, doc *Document) ([]byte, error) {
	corrected, err := doc.Correct(ctx, &CorrectOptions{Workers: s.Workers})
	if err != nil {
		return nil, err
	}
	defer corrected.Close()
	return s.Sink.Write(corrected.Images())
}

// StraightenedImages returns the corrected images as JPEG files, in page order
func (s *Straightener) StraightenedImages(ctx context.Context, pdf []byte) ([][]byte, error) {
	doc, err := s.Analyze(ctx, pdf)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return s.Images(ctx, doc)
}

// Images corrects an analyzed document, and compresses every image to JPEG.
// Images that were not changed are returned as they were stored in the PDF.
func (s *Straightener) Images(ctx context.Context, doc *Document) ([][]byte, error) {
	corrected, err := doc.Correct(ctx, &CorrectOptions{Workers: s.Workers})
	if err != nil {
		return nil, err
	}
	defer corrected.Close()

	images := [][]byte{}
	for _, img := range corrected.Images() {
		if img.Unchanged() && raster.Format(img.Original) == raster.FormatJPEG {
			images = append(images, img.Original)
			continue
		}
		encoded, err := raster.EncodeJPEG(img.Image, 95)
		if err != nil {
			return nil, err
		}
		images = append(images, encoded)
	}
	return images, nil
}

// Returns true if every image is already upright and straight
func (d *Document) IsStraight() bool {
	for _, page := range d.pages {
		for _, img := range page.images {
			if img.invalid == nil && (img.orientation != 0 || img.skewAngle != 0) {
				return false
			}
		}
	}
	return true
}
