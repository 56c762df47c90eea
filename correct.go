package pdfdeskew

import (
	"context"
	"fmt"

	"github.com/bmharper/pdfdeskew/skew"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// CorrectOptions control Document.Correct
type CorrectOptions struct {
	Workers int // Maximum number of images corrected at once. Zero means GOMAXPROCS.
}

// CorrectedImage is an upright, deskewed copy of a source image
type CorrectedImage struct {
	Page  int      // 1-based page number in the source document
	Index int      // Index of the image on its source page
	Image gocv.Mat // BGR pixels

	// The encoded source image, when correction did not change it.
	// This lets a sink embed the original stream without re-compression.
	Original []byte
}

// Returns true if the image was neither rotated nor deskewed
func (c *CorrectedImage) Unchanged() bool {
	return c.Original != nil
}

type CorrectedPage struct {
	Number int
	Images []CorrectedImage
}

// CorrectedDocument is the output of Document.Correct, grouped by source page.
// Pages whose images were all skipped are omitted.
type CorrectedDocument struct {
	Pages []CorrectedPage
}

// All corrected images, in page order
func (c *CorrectedDocument) Images() []CorrectedImage {
	all := []CorrectedImage{}
	for _, p := range c.Pages {
		all = append(all, p.Images...)
	}
	return all
}

func (c *CorrectedDocument) Close() {
	for _, p := range c.Pages {
		for i := range p.Images {
			p.Images[i].Image.Close()
		}
	}
}

// Correct produces an upright, deskewed copy of every image, using the orientation and
// skew found by PredictOrientation and PredictSkew. The document itself is not modified.
// Invalid images are skipped, and images that fail to rotate are skipped with a warning. If nothing is left, ErrNoContent is returned.
func (d *Document) Correct(ctx context.Context, opts *CorrectOptions) (*CorrectedDocument, error) {
	if opts == nil {
		opts = &CorrectOptions{}
	}

	for _, page := range d.pages {
		for i, img := range page.images {
			if img.invalid == nil && !img.Predicted() {
				return nil, fmt.Errorf("%w (page %v, image %v)", ErrNotPredicted, page.number, i)
			}
		}
	}

	// Every image gets its own slot, so results come out in source order regardless of which worker finishes first
	slots := make([][]*CorrectedImage, len(d.pages))
	for p, page := range d.pages {
		slots[p] = make([]*CorrectedImage, len(page.images))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultWorkers(opts.Workers))
	for p, page := range d.pages {
		for i, img := range page.images {
			if img.invalid != nil {
				// already warned about when it was marked invalid
				d.logger().Debug("skipping invalid image", "page", page.number, "image", i)
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				fixed, err := skew.Correct(img.raw, img.orientation, img.skewAngle)
				if err != nil {
					if d.skip(page, i, err) {
						return nil
					}
					return err
				}
				out := &CorrectedImage{
					Page:  page.number,
					Index: i,
					Image: fixed,
				}
				if img.orientation == 0 && img.skewAngle == 0 {
					out.Original = img.encoded
				}
				slots[p][i] = out
				return nil
			})
		}
	}

	result := &CorrectedDocument{}
	err := g.Wait()
	for p, page := range d.pages {
		cp := CorrectedPage{Number: page.number}
		for _, c := range slots[p] {
			if c != nil {
				cp.Images = append(cp.Images, *c)
			}
		}
		if len(cp.Images) != 0 {
			result.Pages = append(result.Pages, cp)
		}
	}
	if err != nil {
		result.Close()
		return nil, err
	}
	if len(result.Pages) == 0 {
		return nil, ErrNoContent
	}
	return result, nil
}
