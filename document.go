package pdfdeskew

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
	"gocv.io/x/gocv"
)

// Image is one raster image on a page, with the results of orientation and skew prediction
type Image struct {
	raw     gocv.Mat // BGR, empty if the image could not be decoded
	encoded []byte   // The image stream as it was stored in the PDF
	invalid error    // Why this image is skipped

	orientation    int
	rotate         int
	skewAngle      float64
	hasOrientation bool
	hasSkew        bool
}

// NewImage takes ownership of raw. encoded may be nil.
func NewImage(raw gocv.Mat, encoded []byte) *Image {
	img := &Image{
		raw:     raw,
		encoded: encoded,
	}
	if raw.Empty() {
		img.invalid = skew.ErrInvalidImage
	}
	return img
}

// Create an image that could not be decoded. It is kept so that page image indices stay stable.
func newInvalidImage(encoded []byte, reason error) *Image {
	return &Image{
		raw:     gocv.NewMat(),
		encoded: encoded,
		invalid: reason,
	}
}

func (img *Image) Raw() gocv.Mat        { return img.raw }
func (img *Image) Encoded() []byte      { return img.encoded }
func (img *Image) Width() int           { return img.raw.Cols() }
func (img *Image) Height() int          { return img.raw.Rows() }
func (img *Image) Orientation() int     { return img.orientation }
func (img *Image) Rotate() int          { return img.rotate }
func (img *Image) SkewAngle() float64   { return img.skewAngle }
func (img *Image) HasOrientation() bool { return img.hasOrientation }
func (img *Image) HasSkew() bool        { return img.hasSkew }

// Returns true if both prediction passes have run on this image
func (img *Image) Predicted() bool {
	return img.hasOrientation && img.hasSkew
}

// Returns nil if the image can be predicted and corrected, otherwise the reason it is skipped
func (img *Image) Invalid() error {
	return img.invalid
}

// PredictOrientation runs the predictor and records its result.
// A result outside of 0, 90, 180, 270 is rejected, and the previous state is kept.
func (img *Image) PredictOrientation(ctx context.Context, p OrientationPredictor) error {
	if img.invalid != nil {
		return img.invalid
	}
	pred, err := p.PredictOrientation(ctx, img.raw)
	if err != nil {
		return err
	}
	if !skew.ValidOrientation(pred.Orientation) {
		return fmt.Errorf("%w (predictor returned %v)", skew.ErrInvalidOrientation, pred.Orientation)
	}
	img.orientation = pred.Orientation
	img.rotate = pred.Rotate
	img.hasOrientation = true
	return nil
}

// PredictSkew runs the predictor and records its result.
// The predictor sees the image after its orientation has been corrected, so that the
// skew is measured against the horizontal text lines of an upright page.
func (img *Image) PredictSkew(p SkewPredictor) error {
	if img.invalid != nil {
		return img.invalid
	}
	upright, err := skew.RotateOrientation(img.raw, img.orientation)
	if err != nil {
		return err
	}
	defer upright.Close()
	angle, err := p.PredictSkew(upright)
	if err != nil {
		return err
	}
	img.skewAngle = angle
	img.hasSkew = true
	return nil
}

// Prediction returns the orientation prediction in the form the predictors produce it
func (img *Image) Prediction() orient.Prediction {
	return orient.Prediction{Orientation: img.orientation, Rotate: img.rotate}
}

func (img *Image) Close() {
	img.raw.Close()
}

// Page is a page of a PDF, holding zero or more images in the order they were found
type Page struct {
	number   int
	rotation int
	images   []*Image
}

func NewPage(number, rotation int, images []*Image) *Page {
	return &Page{
		number:   number,
		rotation: rotation,
		images:   images,
	}
}

// 1-based page number in the source PDF
func (p *Page) Number() int { return p.number }

// The /Rotate attribute declared by the source PDF. This is informational, and does not take part in correction.
func (p *Page) Rotation() int { return p.rotation }

func (p *Page) Images() []*Image { return p.images }

// Document represents a scanned PDF document
type Document struct {
	pages   []*Page
	Verbose bool         // If true, log progress for every page
	Logger  *slog.Logger // If nil, slog.Default() is used
}

func NewDocument(pages []*Page) *Document {
	return &Document{
		pages: pages,
	}
}

func (d *Document) Pages() []*Page {
	return d.pages
}

func (d *Document) NumPages() int {
	return len(d.pages)
}

// Total number of images across all pages, including ones that could not be decoded
func (d *Document) NumImages() int {
	n := 0
	for _, p := range d.pages {
		n += len(p.images)
	}
	return n
}

// Release the pixels of every image
func (d *Document) Close() {
	for _, p := range d.pages {
		for _, img := range p.images {
			img.Close()
		}
	}
}

func (d *Document) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Document) verbose(msg string, args ...any) {
	if d.Verbose {
		d.logger().Info(msg, args...)
	}
}

// skip logs a per-image failure, and returns true if the failure is recoverable
func (d *Document) skip(page *Page, index int, err error) bool {
	if !errors.Is(err, skew.ErrInvalidImage) {
		return false
	}
	d.logger().Warn("skipping image", "page", page.number, "image", index, "err", err)
	return true
}
