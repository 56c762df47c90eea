package pdfdeskew

// PageReport summarizes the predictions for one page
type PageReport struct {
	PageNumber   int       `json:"page_number"`
	Rotation     int       `json:"rotation"`
	SkewAngles   []float64 `json:"skew_angles"`
	Orientations []int     `json:"orientations"`

	// Indices of the images that were skipped. Their angle and orientation are reported as 0.
	InvalidImages []int `json:"invalid_images,omitempty"`
}

// Report returns one entry per source page, with one skew angle and orientation per image
func (d *Document) Report() []PageReport {
	report := make([]PageReport, 0, len(d.pages))
	for _, page := range d.pages {
		r := PageReport{
			PageNumber:   page.number,
			Rotation:     page.rotation,
			SkewAngles:   make([]float64, 0, len(page.images)),
			Orientations: make([]int, 0, len(page.images)),
		}
		for i, img := range page.images {
			r.SkewAngles = append(r.SkewAngles, img.skewAngle)
			r.Orientations = append(r.Orientations, img.orientation)
			if img.invalid != nil {
				r.InvalidImages = append(r.InvalidImages, i)
			}
		}
		report = append(report, r)
	}
	return report
}

// Orientations returns the orientation of every image, in document order
func (d *Document) Orientations() []int {
	all := []int{}
	for _, page := range d.pages {
		for _, img := range page.images {
			all = append(all, img.orientation)
		}
	}
	return all
}

// SkewAngles returns the skew angle of every image, in document order
func (d *Document) SkewAngles() []float64 {
	all := []float64{}
	for _, page := range d.pages {
		for _, img := range page.images {
			all = append(all, img.skewAngle)
		}
	}
	return all
}
