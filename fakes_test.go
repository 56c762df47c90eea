package pdfdeskew

import (
	"context"
	"sync"

	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
	"gocv.io/x/gocv"
)

// scriptedOrientation returns the given orientations in call order, and 0 once they run out
type scriptedOrientation struct {
	mu     sync.Mutex
	script []int
	calls  int
	err    error
}

func (s *scriptedOrientation) PredictOrientation(ctx context.Context, img gocv.Mat) (orient.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return orient.Prediction{}, s.err
	}
	o := 0
	if s.calls < len(s.script) {
		o = s.script[s.calls]
	}
	s.calls++
	return orient.NewPrediction(o), nil
}

// fixedSkew returns the same angle for every image
type fixedSkew struct {
	angle float64
	err   error
}

func (f fixedSkew) PredictSkew(img gocv.Mat) (float64, error) {
	if img.Empty() {
		return 0, skew.ErrInvalidImage
	}
	return f.angle, f.err
}

// blankDocument creates a document where page i holds counts[i] white images.
// Image j on page i is (100+10*i) x (200+10*j), so that every image has its own shape.
func blankDocument(counts ...int) *Document {
	pages := []*Page{}
	for i, n := range counts {
		images := []*Image{}
		for j := 0; j < n; j++ {
			mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100+10*i, 200+10*j, gocv.MatTypeCV8UC3)
			images = append(images, NewImage(mat, []byte{0xFF, 0xD8, 0xFF, byte(i), byte(j)}))
		}
		pages = append(pages, NewPage(i+1, 0, images))
	}
	return NewDocument(pages)
}
