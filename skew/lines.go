package skew

import (
	"errors"
	"fmt"
	"math"

	"github.com/bmharper/pdfdeskew/internal/raster"
	"gocv.io/x/gocv"
)

// ErrInvalidImage is returned for images that are empty or have an unsupported pixel format
var ErrInvalidImage = errors.New("invalid image")

// Line is a segment in pixel coordinates
type Line struct {
	X1, Y1, X2, Y2 int
}

// Angle returns the direction of the segment in degrees, in (-180, 180].
// Image Y points down, so a line that rises to the right has a negative angle.
func (l Line) Angle() float64 {
	return math.Atan2(float64(l.Y2-l.Y1), float64(l.X2-l.X1)) * rad2Deg
}

func (l Line) Length() float64 {
	return math.Hypot(float64(l.X2-l.X1), float64(l.Y2-l.Y1))
}

func (l Line) degenerate() bool {
	return l.X1 == l.X2 && l.Y1 == l.Y2
}

// ExtractLines finds long straight segments in the image, using Canny edges
// followed by a probabilistic Hough transform.
// If params is nil, then NewParams() is used.
func ExtractLines(img gocv.Mat, params *Params) ([]Line, error) {
	if params == nil {
		params = NewParams()
	}
	if img.Empty() || img.Rows() == 0 || img.Cols() == 0 {
		return nil, ErrInvalidImage
	}

	gray, err := toGray(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	edges, err := canny(gray, params.CannyLow, params.CannyHigh)
	if err != nil {
		return nil, err
	}
	edgeMat, err := raster.FromBytes(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC1, edges)
	if err != nil {
		return nil, err
	}
	defer edgeMat.Close()

	found := gocv.NewMat()
	defer found.Close()
	gocv.HoughLinesPWithParams(edgeMat, &found,
		float32(params.HoughRho),
		float32(params.HoughThetaDegrees*deg2Rad),
		params.HoughThreshold,
		float32(params.MinLineLength),
		float32(params.MaxLineGap))

	lines := make([]Line, 0, found.Rows())
	for i := 0; i < found.Rows(); i++ {
		v := found.GetVeciAt(i, 0)
		lines = append(lines, Line{
			X1: int(v[0]),
			Y1: int(v[1]),
			X2: int(v[2]),
			Y2: int(v[3]),
		})
	}
	return lines, nil
}

func toGray(img gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	switch img.Type() {
	case gocv.MatTypeCV8UC1:
		img.CopyTo(&gray)
	case gocv.MatTypeCV8UC3:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	case gocv.MatTypeCV8UC4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("%w: unsupported pixel type %v", ErrInvalidImage, img.Type())
	}
	return gray, nil
}
