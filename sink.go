package pdfdeskew

import (
	"bytes"
	"io"

	"github.com/bmharper/pdfdeskew/internal/raster"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFSink writes one PDF page per image, with pdfcpu
type PDFSink struct {
	Quality int // JPEG quality for images that had to be re-encoded
}

func NewPDFSink() *PDFSink {
	return &PDFSink{Quality: 95}
}

// Encode returns the bytes to embed for the image: the original stream if the image
// was not changed and pdfcpu can import it as-is, otherwise a new JPEG.
func (s *PDFSink) Encode(img CorrectedImage) ([]byte, error) {
	if img.Unchanged() {
		switch raster.Format(img.Original) {
		case raster.FormatJPEG, raster.FormatPNG:
			// There was no transformation at all, so just return the original blob
			return img.Original, nil
		}
	}
	quality := s.Quality
	if quality <= 0 {
		quality = 95
	}
	return raster.EncodeJPEG(img.Image, quality)
}

func (s *PDFSink) Write(images []CorrectedImage) ([]byte, error) {
	if len(images) == 0 {
		return nil, ErrNoContent
	}
	readers := make([]io.Reader, 0, len(images))
	for _, img := range images {
		encoded, err := s.Encode(img)
		if err != nil {
			return nil, err
		}
		readers = append(readers, bytes.NewReader(encoded))
	}
	return buildPDF(readers)
}

// Create a new PDF from the given images
func buildPDF(images []io.Reader) ([]byte, error) {
	output := &bytes.Buffer{}
	importConfig := pdfcpu.DefaultImportConfig()
	importConfig.Scale = 1
	importConfig.Pos = types.Center
	if err := pdfapi.ImportImages(nil, output, images, importConfig, nil); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}
