// Package raster moves pixels between gocv matrices, cimg images and encoded files.
//
// Matrices produced here are always 8-bit BGR (gocv's native channel order), and
// cimg images are always 8-bit RGB.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"runtime"

	"github.com/bmharper/cimg/v2"
	"gocv.io/x/gocv"

	// Decoders for formats that neither cimg nor OpenCV are guaranteed to handle
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmpty is returned when an image has no pixels
var ErrEmpty = errors.New("empty image")

// Encoded image formats that can be embedded into a PDF without re-encoding
const (
	FormatJPEG    = "jpeg"
	FormatPNG     = "png"
	FormatUnknown = ""
)

// FromBytes copies data into a new matrix of the given shape.
// gocv.NewMatFromBytes borrows the slice, so the copy is taken while the slice is known to be alive.
func FromBytes(rows, cols int, mt gocv.MatType, data []byte) (gocv.Mat, error) {
	borrowed, err := gocv.NewMatFromBytes(rows, cols, mt, data)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer borrowed.Close()
	owned := borrowed.Clone()
	runtime.KeepAlive(data)
	return owned, nil
}

// ToCimg converts a gray, BGR or BGRA matrix to an RGB cimg image
func ToCimg(img gocv.Mat) (*cimg.Image, error) {
	if img.Empty() {
		return nil, ErrEmpty
	}
	rgb := gocv.NewMat()
	defer rgb.Close()
	switch img.Channels() {
	case 1:
		gocv.CvtColor(img, &rgb, gocv.ColorGrayToBGR)
	case 3:
		gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
	case 4:
		// RGBA->BGR is the same channel shuffle as BGRA->RGB
		gocv.CvtColor(img, &rgb, gocv.ColorRGBAToBGR)
	default:
		return nil, fmt.Errorf("unsupported channel count %v", img.Channels())
	}
	return cimg.WrapImage(rgb.Cols(), rgb.Rows(), cimg.PixelFormatRGB, rgb.ToBytes()), nil
}

// FromCimg converts a cimg image of any pixel format to a BGR matrix
func FromCimg(img *cimg.Image) (gocv.Mat, error) {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return gocv.Mat{}, ErrEmpty
	}
	if img.Format != cimg.PixelFormatRGB {
		img = img.ToRGB()
	}
	rowBytes := img.Width * 3
	pixels := img.Pixels
	if img.Stride != rowBytes {
		pixels = make([]byte, rowBytes*img.Height)
		for y := 0; y < img.Height; y++ {
			copy(pixels[y*rowBytes:(y+1)*rowBytes], img.Pixels[y*img.Stride:y*img.Stride+rowBytes])
		}
	}
	rgb, err := FromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, pixels)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer rgb.Close()
	bgr := gocv.NewMat()
	// the swap is symmetric, so BGR->RGB also turns RGB into BGR
	gocv.CvtColor(rgb, &bgr, gocv.ColorBGRToRGB)
	return bgr, nil
}

// Decode a compressed image into a BGR matrix.
// JPEG goes through libjpeg-turbo (cimg), then OpenCV gets a turn, and finally the Go image decoders.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, ErrEmpty
	}
	if Format(data) == FormatJPEG {
		if img, err := cimg.Decompress(data); err == nil {
			return FromCimg(img)
		}
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if err == nil {
		mat.Close()
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("undecodable image: %w", err)
	}
	bgr, err := gocv.ImageToMatRGB(decoded)
	if err != nil {
		return gocv.Mat{}, err
	}
	if bgr.Empty() {
		bgr.Close()
		return gocv.Mat{}, ErrEmpty
	}
	return bgr, nil
}

// EncodeJPEG compresses a matrix with libjpeg-turbo, using 4:4:4 sampling
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	c, err := ToCimg(img)
	if err != nil {
		return nil, err
	}
	return cimg.Compress(c, cimg.MakeCompressParams(cimg.Sampling444, quality, 0))
}

// Format sniffs the encoded format from the leading magic bytes
func Format(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	}
	return FormatUnknown
}
