package orient

import (
	"context"
	"fmt"
	"image"
	"sync"
	"unicode/utf8"

	"github.com/bmharper/pdfdeskew/skew"
	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Tesseract predicts orientation by running OCR on each of the four corrections of
// the image, and picking the one in which Tesseract is most confident about the words
// that it reads.
type Tesseract struct {
	MaxResolution int // Images are downscaled so that their longest side is at most this many pixels
	MinWordLength int // Shorter words do not vote

	mu     sync.Mutex
	client *gosseract.Client
}

func NewTesseract(language string) (*Tesseract, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	return &Tesseract{
		MaxResolution: 1600,
		MinWordLength: 3,
		client:        client,
	}, nil
}

func (t *Tesseract) PredictOrientation(ctx context.Context, img gocv.Mat) (Prediction, error) {
	if img.Empty() {
		return Prediction{}, skew.ErrInvalidImage
	}
	small := t.downscale(img)
	defer small.Close()

	best := 0
	bestScore := 0.0
	for _, o := range Orientations {
		if err := ctx.Err(); err != nil {
			return Prediction{}, err
		}
		candidate, err := skew.RotateOrientation(small, o)
		if err != nil {
			return Prediction{}, err
		}
		score, err := t.score(candidate)
		candidate.Close()
		if err != nil {
			return Prediction{}, err
		}
		if score > bestScore {
			best, bestScore = o, score
		}
	}
	return checkPrediction(NewPrediction(best))
}

// score sums the confidence of every word that Tesseract finds in img
func (t *Tesseract) score(img gocv.Mat) (float64, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return 0, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return 0, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return 0, fmt.Errorf("failed to get boxes: %w", err)
	}
	total := 0.0
	for _, box := range boxes {
		if utf8.RuneCountInString(box.Word) < t.MinWordLength {
			continue
		}
		total += box.Confidence
	}
	return total, nil
}

func (t *Tesseract) downscale(img gocv.Mat) gocv.Mat {
	longest := max(img.Rows(), img.Cols())
	if t.MaxResolution <= 0 || longest <= t.MaxResolution {
		return img.Clone()
	}
	scale := float64(t.MaxResolution) / float64(longest)
	dst := gocv.NewMat()
	size := image.Point{X: int(float64(img.Cols()) * scale), Y: int(float64(img.Rows()) * scale)}
	gocv.Resize(img, &dst, size, 0, 0, gocv.InterpolationArea)
	return dst
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
