// Package bmpio adapts between bitmap.Bitmap and the standard image.Image
// interface so the codec can read and write plain BMP files at its
// command-line boundary.
package bmpio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/bmp"

	"github.com/inkframe/apvideo/bitmap"
)

var ErrUnsupportedColorModel = errors.New("bmpio: image does not decode to a 24-bit RGB-equivalent color model")

// ReadBMP decodes path as a BMP image and copies its pixels into a
// depth-3 bitmap.Bitmap.
func ReadBMP(path string) (*bitmap.Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bmpio: open %s: %w", path, err)
	}
	defer f.Close()

	img, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("bmpio: decode %s: %w", path, err)
	}
	switch img.ColorModel() {
	case color.RGBAModel, color.NRGBAModel, color.GrayModel, color.Gray16Model:
	default:
		return nil, ErrUnsupportedColorModel
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	b := bitmap.New(width, height, 3)
	for y := 0; y < height; y++ {
		row := b.Pix[y*width*3 : (y+1)*width*3]
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			row[x*3] = uint8(r >> 8)
			row[x*3+1] = uint8(g >> 8)
			row[x*3+2] = uint8(bl >> 8)
		}
	}
	return b, nil
}

// WriteBMP encodes b (depth 3) as a BMP file at path.
func WriteBMP(path string, b *bitmap.Bitmap) error {
	if b.Depth != 3 {
		return fmt.Errorf("bmpio: bitmap depth must be 3, got %d", b.Depth)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bmpio: create %s: %w", path, err)
	}
	defer f.Close()

	if err := bmp.Encode(f, &bitmapImage{b}); err != nil {
		return fmt.Errorf("bmpio: encode %s: %w", path, err)
	}
	return nil
}

// bitmapImage adapts a depth-3 bitmap.Bitmap to image.Image without
// copying its pixel buffer.
type bitmapImage struct {
	b *bitmap.Bitmap
}

func (i *bitmapImage) ColorModel() color.Model { return color.RGBAModel }

func (i *bitmapImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.b.Width, i.b.Height)
}

func (i *bitmapImage) At(x, y int) color.Color {
	p := i.b.At(x, y)
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: 0xFF}
}
