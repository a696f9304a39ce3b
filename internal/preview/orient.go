package preview

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
)

// exifOrientation returns the EXIF orientation (1-8) of a JPEG, or 1 when
// absent or invalid.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

func swapsAxes(o int) bool { return o >= 5 && o <= 8 }

// orient transforms img so that it displays upright for EXIF orientation o.
func orient(img *image.RGBA, o int) *image.RGBA {
	if o <= 1 || o > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var src func(x, y int) (int, int)
	switch o {
	case 2: // mirror horizontal
		src = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotate 180
		src = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirror vertical
		src = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transpose
		src = func(x, y int) (int, int) { return y, x }
	case 6: // rotate 90 clockwise
		src = func(x, y int) (int, int) { return y, h - 1 - x }
	case 7: // transverse
		src = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case 8: // rotate 90 counter-clockwise
		src = func(x, y int) (int, int) { return w - 1 - y, x }
	}

	dw, dh := w, h
	if swapsAxes(o) {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			sx, sy := src(x, y)
			dst.SetRGBA(x, y, img.RGBAAt(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
