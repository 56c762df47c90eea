package skew

import (
	"math"

	"gocv.io/x/gocv"
)

// tan(22.5) and tan(67.5), the boundaries between the four gradient direction sectors
const (
	tan22 = 0.41421356237309503
	tan67 = 2.414213562373095
)

// Edge detection states, before hysteresis
const (
	notEdge = iota
	weakEdge
	strongEdge
)

// canny finds edges in an 8-bit gray image. Gradients come from a 3x3 Sobel kernel,
// and thresholds are applied to the L2 gradient magnitude.
// The result has one byte per pixel, 255 for edge pixels and 0 elsewhere.
func canny(gray gocv.Mat, low, high float64) ([]byte, error) {
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()

	gocv.Sobel(gray, &gx, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderReplicate)
	gocv.Sobel(gray, &gy, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderReplicate)

	dx, err := gx.DataPtrInt16()
	if err != nil {
		return nil, err
	}
	dy, err := gy.DataPtrInt16()
	if err != nil {
		return nil, err
	}
	return cannyFromGradients(dx, dy, gray.Cols(), gray.Rows(), low, high), nil
}

func cannyFromGradients(dx, dy []int16, width, height int, low, high float64) []byte {
	mag := make([]float64, width*height)
	for i := range mag {
		gx := float64(dx[i])
		gy := float64(dy[i])
		mag[i] = math.Sqrt(gx*gx + gy*gy)
	}

	// Non-maximum suppression. The one pixel border never holds an edge.
	state := make([]byte, width*height)
	strong := []int{}
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			m := mag[i]
			if m <= low {
				continue
			}
			ax := math.Abs(float64(dx[i]))
			ay := math.Abs(float64(dy[i]))
			var n1, n2 int
			switch {
			case ay <= ax*tan22:
				// gradient is mostly horizontal
				n1, n2 = i-1, i+1
			case ay >= ax*tan67:
				n1, n2 = i-width, i+width
			case (dx[i] < 0) != (dy[i] < 0):
				n1, n2 = i-width+1, i+width-1
			default:
				n1, n2 = i-width-1, i+width+1
			}
			// The asymmetric comparison keeps exactly one pixel of a two pixel wide ridge
			if m <= mag[n1] || m < mag[n2] {
				continue
			}
			if m > high {
				state[i] = strongEdge
				strong = append(strong, i)
			} else {
				state[i] = weakEdge
			}
		}
	}

	// Hysteresis: weak pixels survive only when 8-connected to a strong pixel
	edges := make([]byte, width*height)
	stack := strong
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if edges[i] != 0 {
			continue
		}
		edges[i] = 255
		x, y := i%width, i/width
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if state[j] != notEdge && edges[j] == 0 {
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}
