package skew

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// ErrInvalidOrientation is returned for orientations that are not a multiple of 90 degrees in [0, 270]
var ErrInvalidOrientation = errors.New("orientation must be one of 0, 90, 180, 270")

// Fill for canvas pixels that have no source pixel
var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Returns true if orientation is one of 0, 90, 180, 270
func ValidOrientation(orientation int) bool {
	switch orientation {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// RotateOrientation undoes a clockwise rotation of the content by orientation degrees.
// This is lossless. The result is a new matrix, even for orientation 0.
func RotateOrientation(img gocv.Mat, orientation int) (gocv.Mat, error) {
	if !ValidOrientation(orientation) {
		return gocv.Mat{}, fmt.Errorf("%w (got %v)", ErrInvalidOrientation, orientation)
	}
	if orientation == 0 {
		return img.Clone(), nil
	}
	dst := gocv.NewMat()
	switch orientation {
	case 90:
		gocv.Rotate(img, &dst, gocv.Rotate90CounterClockwise)
	case 180:
		gocv.Rotate(img, &dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(img, &dst, gocv.Rotate90Clockwise)
	}
	return dst, nil
}

// Deskew rotates the image by degrees (counter-clockwise on screen for positive angles),
// with bicubic interpolation, onto a white canvas that is large enough to hold all of it.
func Deskew(img gocv.Mat, degrees float64) gocv.Mat {
	if degrees == 0 {
		return img.Clone()
	}
	m, newWidth, newHeight := RotationMatrix(img.Cols(), img.Rows(), degrees)
	transform := m.mat()
	defer transform.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &dst, transform, image.Point{X: newWidth, Y: newHeight},
		gocv.InterpolationCubic, gocv.BorderConstant, white)
	return dst
}

// Correct makes the image upright and straight. The orientation is undone first,
// and then the skew angle (as returned by Estimate) is removed.
func Correct(img gocv.Mat, orientation int, degrees float64) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.Mat{}, ErrInvalidImage
	}
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return gocv.Mat{}, fmt.Errorf("invalid skew angle %v", degrees)
	}
	upright, err := RotateOrientation(img, orientation)
	if err != nil {
		return gocv.Mat{}, err
	}
	if degrees == 0 {
		return upright, nil
	}
	defer upright.Close()
	return Deskew(upright, degrees), nil
}

func (a Affine) mat() gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			m.SetDoubleAt(row, col, a[row][col])
		}
	}
	return m
}
