// Package synth draws synthetic scanned pages with known orientation and skew.
package synth

import (
	"image"
	"image/color"

	"github.com/bmharper/pdfdeskew/skew"
	"gocv.io/x/gocv"
)

var (
	white = gocv.NewScalar(255, 255, 255, 0)
	black = color.RGBA{A: 255}
)

// Page returns an upright BGR page: a frame, two vertical rules in the margins,
// horizontal bars standing in for text lines, and a block in the top left corner
// so that 180 degree rotations are distinguishable.
// Width should be at least 400 and height at least 500.
func Page(width, height int) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(white, height, width, gocv.MatTypeCV8UC3)

	gocv.Rectangle(&img, image.Rect(40, 40, width-40, height-40), black, 4)

	gocv.Rectangle(&img, image.Rect(60, 120, 70, height-120), black, -1)
	gocv.Rectangle(&img, image.Rect(width-70, 120, width-60, height-120), black, -1)

	for y := 120; y+14 <= height-120; y += 60 {
		gocv.Rectangle(&img, image.Rect(100, y, width-100, y+14), black, -1)
	}

	gocv.Rectangle(&img, image.Rect(50, 50, 90, 90), black, -1)
	return img
}

// Distort rotates an upright page so that skew.Estimate measures degrees on it,
// and then turns it clockwise by orientation, the way a sideways scan looks.
func Distort(img gocv.Mat, orientation int, degrees float64) gocv.Mat {
	skewed := skew.Deskew(img, -degrees)
	if orientation == 0 {
		return skewed
	}
	defer skewed.Close()
	dst := gocv.NewMat()
	switch orientation {
	case 90:
		gocv.Rotate(skewed, &dst, gocv.Rotate90Clockwise)
	case 180:
		gocv.Rotate(skewed, &dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(skewed, &dst, gocv.Rotate90CounterClockwise)
	default:
		panic("orientation must be one of 0, 90, 180, 270")
	}
	return dst
}

// DarkPixels counts pixels whose gray value is below 128
func DarkPixels(img gocv.Mat) int {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	dark := gocv.NewMat()
	defer dark.Close()
	gocv.Threshold(gray, &dark, 127, 255, gocv.ThresholdBinaryInv)
	return gocv.CountNonZero(dark)
}
