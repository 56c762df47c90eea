package skew

import "math"

// Affine is a 2x3 matrix that maps source pixel coordinates to destination pixel coordinates
type Affine [2][3]float64

func (a Affine) Apply(x, y float64) (float64, float64) {
	return a[0][0]*x + a[0][1]*y + a[0][2], a[1][0]*x + a[1][1]*y + a[1][2]
}

// CanvasSize returns the dimensions of a canvas that holds a width x height image
// after it has been rotated by degrees.
func CanvasSize(width, height int, degrees float64) (int, int) {
	rad := degrees * deg2Rad
	cosA := math.Abs(math.Cos(rad))
	sinA := math.Abs(math.Sin(rad))
	w := float64(height)*sinA + float64(width)*cosA
	h := float64(height)*cosA + float64(width)*sinA
	// The epsilon stops cos(90) = 6e-17 from adding a whole pixel
	const eps = 1e-6
	return int(math.Ceil(w - eps)), int(math.Ceil(h - eps))
}

// RotationMatrix returns the transform that rotates a width x height image by degrees
// about its center, and the size of the canvas that receives it.
// Positive angles rotate counter-clockwise on screen, matching OpenCV's getRotationMatrix2D.
// The source center lands on the canvas center, so every source pixel center maps inside the canvas.
func RotationMatrix(width, height int, degrees float64) (Affine, int, int) {
	newWidth, newHeight := CanvasSize(width, height, degrees)
	rad := degrees * deg2Rad
	alpha := math.Cos(rad)
	beta := math.Sin(rad)
	cx := float64(width-1) / 2
	cy := float64(height-1) / 2
	dcx := float64(newWidth-1) / 2
	dcy := float64(newHeight-1) / 2
	m := Affine{
		{alpha, beta, dcx - alpha*cx - beta*cy},
		{-beta, alpha, dcy + beta*cx - alpha*cy},
	}
	return m, newWidth, newHeight
}
