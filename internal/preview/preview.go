// Package preview builds the bordered thumbnail shown before a cover is
// embedded, and draws it in a terminal.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MaxSide     = 300
	BorderWidth = 10
)

var BorderColor = color.RGBA{R: 255, G: 0, B: 110, A: 255}

// Preview is a decoded cover image ready for display.
type Preview struct {
	Path   string
	Format string
	// Size of the decoded image after EXIF orientation.
	Source image.Point
	// Thumbnail with the border applied.
	Image *image.RGBA
}

// Load decodes the image at path and builds its preview.
func Load(path string) (*Preview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// FromBytes decodes an encoded image and builds its preview.
func FromBytes(data []byte) (*Preview, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	orientation := 1
	if format == "jpeg" {
		orientation = exifOrientation(data)
	}

	// Orientation is applied after scaling; the longest side is the same
	// either way.
	thumb := orient(Thumbnail(img, MaxSide), orientation)
	src := img.Bounds().Size()
	if swapsAxes(orientation) {
		src = image.Pt(src.Y, src.X)
	}
	return &Preview{
		Format: format,
		Source: src,
		Image:  AddBorder(thumb, BorderWidth, BorderColor),
	}, nil
}

// Thumbnail scales img down so neither side exceeds maxSide, keeping the
// aspect ratio. Smaller images are copied unscaled. Transparent areas are
// flattened onto black.
func Thumbnail(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxSide || h > maxSide {
		if w >= h {
			h = max(1, (h*maxSide+w/2)/w)
			w = maxSide
		} else {
			w = max(1, (w*maxSide+h/2)/h)
			h = maxSide
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	}
	return dst
}

// AddBorder returns a copy of img framed by width pixels of c on every side.
func AddBorder(img image.Image, width int, c color.Color) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*width, b.Dy()+2*width))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	inner := image.Rect(width, width, width+b.Dx(), width+b.Dy())
	draw.Draw(dst, inner, img, b.Min, draw.Src)
	return dst
}
