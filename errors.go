package pdfdeskew

import "errors"

var (
	// ErrInvalidPDF is returned when the input cannot be parsed as a PDF, or holds no images at all
	ErrInvalidPDF = errors.New("not a valid PDF, or no images in PDF")

	// ErrNoContent is returned when every image in a document had to be skipped
	ErrNoContent = errors.New("no correctable images in document")

	// ErrNotPredicted is returned when correcting an image before its orientation and skew are known
	ErrNotPredicted = errors.New("orientation and skew must be predicted before correction")
)
