package pdfdeskew

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/bmharper/pdfdeskew/internal/raster"
	"github.com/bmharper/pdfdeskew/skew"
	"github.com/gen2brain/go-fitz"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFLoader extracts the raster images of every page with pdfcpu
type PDFLoader struct {
	Verbose bool
	Logger  *slog.Logger // If nil, slog.Default() is used
}

func (l *PDFLoader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Load parses the PDF and decodes every image on every page.
// Page thumbnails and image masks are ignored.
// Pages without images are kept, with zero images.
// Images that fail to decode are kept too, but are marked invalid, and later skipped.
func (l *PDFLoader) Load(ctx context.Context, data []byte) (*Document, error) {
	pdfCtx, err := pdfapi.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}

	extracted, err := pdfapi.ExtractImagesRaw(bytes.NewReader(data), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	byPage := map[int][]model.Image{}
	for _, imageMap := range extracted {
		// map order is random, so sort by object number to keep the order stable
		objNrs := []int{}
		for objNr := range imageMap {
			objNrs = append(objNrs, objNr)
		}
		slices.Sort(objNrs)
		for _, objNr := range objNrs {
			img := imageMap[objNr]
			if img.Thumb || img.IsImgMask {
				// Page thumbnails and stencil masks are not scans of the page
				l.logger().Debug("ignoring image", "page", img.PageNr, "object", objNr, "thumbnail", img.Thumb, "mask", img.IsImgMask)
				continue
			}
			byPage[img.PageNr] = append(byPage[img.PageNr], img)
		}
	}

	doc := NewDocument(nil)
	doc.Verbose = l.Verbose
	doc.Logger = l.Logger
	nImages := 0
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			doc.Close()
			return nil, err
		}
		rotation := 0
		if _, _, inherited, err := pdfCtx.PageDict(pageNr, false); err == nil && inherited != nil {
			rotation = inherited.Rotate
		}
		images := []*Image{}
		for i, src := range byPage[pageNr] {
			images = append(images, l.decode(pageNr, i, src))
			nImages++
		}
		doc.pages = append(doc.pages, NewPage(pageNr, rotation, images))
		l.logPage(pageNr, len(images))
	}

	if nImages == 0 {
		doc.Close()
		return nil, ErrInvalidPDF
	}
	return doc, nil
}

func (l *PDFLoader) decode(pageNr, index int, src model.Image) *Image {
	raw, err := io.ReadAll(src)
	if err != nil {
		l.logger().Warn("unreadable image", "page", pageNr, "image", index, "err", err)
		return newInvalidImage(nil, fmt.Errorf("%w: %w", skew.ErrInvalidImage, err))
	}
	mat, err := raster.Decode(raw)
	if err != nil {
		l.logger().Warn("undecodable image", "page", pageNr, "image", index, "type", src.FileType, "err", err)
		return newInvalidImage(raw, fmt.Errorf("%w: %w", skew.ErrInvalidImage, err))
	}
	return NewImage(mat, raw)
}

func (l *PDFLoader) logPage(pageNr, nImages int) {
	if l.Verbose {
		l.logger().Info("loaded page", "page", pageNr, "images", nImages)
	}
}

// IsScanned returns true if no page of the PDF has a text layer.
func IsScanned(data []byte) (bool, error) {
	// pdfcpu is not able to extract the text from the document, which is why we use
	// go-fitz for this. Checking that there is 1 image per page is not sufficient,
	// because what if a document has exactly one logo image per page, and the logo
	// happens to be quite high resolution, mimicking a scanned page.
	fz, err := fitz.NewFromMemory(data)
	if err != nil {
		return false, err
	}
	defer fz.Close()
	for i := range fz.NumPage() {
		txt, err := fz.Text(i)
		if err != nil {
			return false, err
		}
		if txt != "" {
			return false, nil
		}
	}
	return true, nil
}
