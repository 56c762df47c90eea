package pdfdeskew

import (
	"bytes"
	"context"
	"image"
	"io"
	"testing"

	"github.com/bmharper/pdfdeskew/internal/raster"
	"github.com/bmharper/pdfdeskew/internal/synth"
	"github.com/bmharper/pdfdeskew/skew"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// syntheticPDF creates a scanned PDF with one page per (orientation, skew) pair
func syntheticPDF(t *testing.T, orientations []int, skews []float64) []byte {
	page := synth.Page(800, 1000)
	defer page.Close()
	readers := []io.Reader{}
	for i := range orientations {
		distorted := synth.Distort(page, orientations[i], skews[i])
		encoded, err := raster.EncodeJPEG(distorted, 92)
		distorted.Close()
		require.NoError(t, err)
		readers = append(readers, bytes.NewReader(encoded))
	}
	pdf, err := buildPDF(readers)
	require.NoError(t, err)
	return pdf
}

// The skew band is widened so that a 10 degree skew still votes
func e2eParams() *skew.Params {
	params := skew.NewParams()
	params.AxisThreshold = 15
	return params
}

func TestLoadSyntheticPDF(t *testing.T) {
	pdf := syntheticPDF(t, []int{0, 90}, []float64{0, 3})
	loader := &PDFLoader{}
	doc, err := loader.Load(context.Background(), pdf)
	require.NoError(t, err)
	defer doc.Close()
	require.Equal(t, 2, doc.NumPages())
	require.Equal(t, 2, doc.NumImages())
	require.Equal(t, 1, doc.Pages()[0].Number())
	require.Equal(t, 800, doc.Pages()[0].Images()[0].Width())
	require.Equal(t, 1000, doc.Pages()[0].Images()[0].Height())
	// the sideways page is landscape
	require.Greater(t, doc.Pages()[1].Images()[0].Width(), doc.Pages()[1].Images()[0].Height())
	require.Equal(t, raster.FormatJPEG, raster.Format(doc.Pages()[0].Images()[0].Encoded()))

	scanned, err := IsScanned(pdf)
	require.NoError(t, err)
	require.True(t, scanned)
}

// withThumbnail adds a small /Thumb image to the first page
func withThumbnail(t *testing.T, pdf []byte) []byte {
	pdfCtx, err := pdfapi.ReadContext(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	require.NoError(t, err)
	require.NoError(t, pdfCtx.EnsurePageCount())

	page := synth.Page(800, 1000)
	defer page.Close()
	thumb := gocv.NewMat()
	defer thumb.Close()
	gocv.Resize(page, &thumb, image.Pt(80, 100), 0, 0, gocv.InterpolationArea)
	encoded, err := raster.EncodeJPEG(thumb, 80)
	require.NoError(t, err)

	ref, _, _, err := model.CreateImageResource(pdfCtx.XRefTable, bytes.NewReader(encoded), false, false)
	require.NoError(t, err)
	pageDict, _, _, err := pdfCtx.PageDict(1, false)
	require.NoError(t, err)
	pageDict["Thumb"] = *ref

	out := &bytes.Buffer{}
	require.NoError(t, pdfapi.WriteContext(pdfCtx, out))
	return out.Bytes()
}

func TestLoadIgnoresThumbnails(t *testing.T) {
	pdf := withThumbnail(t, syntheticPDF(t, []int{0}, []float64{0}))

	// pdfcpu reports the thumbnail as a second image on the page
	extracted, err := pdfapi.ExtractImagesRaw(bytes.NewReader(pdf), nil, nil)
	require.NoError(t, err)
	thumbs := 0
	for _, imageMap := range extracted {
		for _, img := range imageMap {
			if img.Thumb {
				thumbs++
			}
		}
	}
	require.Equal(t, 1, thumbs)

	doc, err := (&PDFLoader{}).Load(context.Background(), pdf)
	require.NoError(t, err)
	defer doc.Close()
	require.Equal(t, 1, doc.NumPages())
	require.Equal(t, 1, doc.NumImages())
	require.Equal(t, 800, doc.Pages()[0].Images()[0].Width())
	require.Equal(t, 1000, doc.Pages()[0].Images()[0].Height())
}

func TestLoadInvalidPDF(t *testing.T) {
	loader := &PDFLoader{}
	_, err := loader.Load(context.Background(), []byte("%PDF-1.4 this is not really a PDF"))
	require.ErrorIs(t, err, ErrInvalidPDF)
	_, err = loader.Load(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidPDF)
}

func TestStraightenEndToEnd(t *testing.T) {
	orientations := []int{0, 180, 90}
	skews := []float64{0, 10, -5}
	pdf := syntheticPDF(t, orientations, skews)

	s := NewStraightener(&scriptedOrientation{script: orientations}, e2eParams())
	s.Workers = 2
	result, err := s.Straighten(context.Background(), pdf)
	require.NoError(t, err)

	require.Len(t, result.Report, 3)
	for i, r := range result.Report {
		require.Equal(t, i+1, r.PageNumber)
		require.Equal(t, []int{orientations[i]}, r.Orientations)
		require.Len(t, r.SkewAngles, 1)
		require.InDelta(t, skews[i], r.SkewAngles[0], 1, "page %v", i+1)
	}

	// Every page of the output is upright and straight
	loader := &PDFLoader{}
	out, err := loader.Load(context.Background(), result.PDF)
	require.NoError(t, err)
	defer out.Close()
	require.Equal(t, 3, out.NumPages())
	for _, page := range out.Pages() {
		require.Len(t, page.Images(), 1)
		img := page.Images()[0]
		require.Greater(t, img.Height(), img.Width(), "page %v should be portrait", page.Number())
		angle, err := skew.Estimate(img.Raw(), e2eParams())
		require.NoError(t, err)
		require.InDelta(t, 0, angle, 1, "page %v", page.Number())
	}
}

func TestStraightenedImages(t *testing.T) {
	pdf := syntheticPDF(t, []int{0, 270}, []float64{0, 0})
	s := NewStraightener(&scriptedOrientation{script: []int{0, 270}}, nil)
	images, err := s.StraightenedImages(context.Background(), pdf)
	require.NoError(t, err)
	require.Len(t, images, 2)

	for _, encoded := range images {
		require.Equal(t, raster.FormatJPEG, raster.Format(encoded))
		img, err := raster.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, 800, img.Cols())
		require.Equal(t, 1000, img.Rows())
		img.Close()
	}
}

func TestPredictOnly(t *testing.T) {
	pdf := syntheticPDF(t, []int{0, 0}, []float64{0, -4})
	s := NewStraightener(nil, nil)

	p, err := s.Predict(context.Background(), pdf, false, true)
	require.NoError(t, err)
	require.Nil(t, p.Orientation)
	require.Len(t, p.SkewOrientation, 2)
	require.InDelta(t, 0, p.SkewOrientation[0], 1)
	require.InDelta(t, -4, p.SkewOrientation[1], 1)
	require.Len(t, p.Pages, 2)

	p, err = s.Predict(context.Background(), pdf, true, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0}, p.Orientation)
	require.Nil(t, p.SkewOrientation)
}

func TestIsStraight(t *testing.T) {
	doc := blankDocument(2)
	defer doc.Close()
	predictAll(t, doc, []int{0, 0}, 0)
	require.True(t, doc.IsStraight())

	doc2 := blankDocument(2)
	defer doc2.Close()
	predictAll(t, doc2, []int{0, 180}, 0)
	require.False(t, doc2.IsStraight())
}
