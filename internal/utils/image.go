package utils

import (
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
)

var ErrUnsupportedImageFormat = errors.New("unsupported image format")

type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FitWithin scales width x height down to fit maxWidth x maxHeight, keeping
// the aspect ratio. Images that already fit are returned unchanged.
func FitWithin(width, height, maxWidth, maxHeight uint) (uint, uint) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	widthRatio := float64(maxWidth) / float64(width)
	heightRatio := float64(maxHeight) / float64(height)

	if widthRatio < heightRatio {
		return maxWidth, uint(float64(height) * widthRatio)
	}
	return uint(float64(width) * heightRatio), maxHeight
}

// DecodeImage reads a JPEG or PNG and returns it with its format name.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// ResizeImage downscales img to fit the bounds using Lanczos resampling.
func ResizeImage(img image.Image, maxWidth, maxHeight uint) image.Image {
	bounds := img.Bounds()
	width, height := uint(bounds.Dx()), uint(bounds.Dy())

	newWidth, newHeight := FitWithin(width, height, maxWidth, maxHeight)
	if newWidth == width && newHeight == height {
		return img
	}
	return resize.Resize(newWidth, newHeight, img, resize.Lanczos3)
}

func GetImageDimensions(img image.Image) ImageDimensions {
	bounds := img.Bounds()
	return ImageDimensions{Width: bounds.Dx(), Height: bounds.Dy()}
}

func EncodeImage(img image.Image, format string, writer io.Writer, quality int) error {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
	case "png":
		return png.Encode(writer, img)
	default:
		return ErrUnsupportedImageFormat
	}
}
