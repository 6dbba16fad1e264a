package video

import (
	"image"

	"golang.org/x/image/draw"
)

// Mirror returns a horizontally flipped copy of img.
func Mirror(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(b.Dx()-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// Compose builds the snapshot sent to the classifier: the camera frame,
// mirrored when mirror is set, with overlay drawn on top and the result
// scaled to width pixels wide. overlay may be nil and is stretched to the
// frame size when the sizes differ. width <= 0 keeps the frame size.
func Compose(frame, overlay image.Image, mirror bool, width int) *image.RGBA {
	var base *image.RGBA
	if mirror {
		base = Mirror(frame)
	} else {
		b := frame.Bounds()
		base = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(base, base.Bounds(), frame, b.Min, draw.Src)
	}

	if overlay != nil {
		if overlay.Bounds().Size() == base.Bounds().Size() {
			draw.Draw(base, base.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
		} else {
			draw.BiLinear.Scale(base, base.Bounds(), overlay, overlay.Bounds(), draw.Over, nil)
		}
	}

	return Scale(base, width)
}

// Scale resizes img to width pixels, keeping the aspect ratio.
func Scale(img *image.RGBA, width int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 || width == b.Dx() || b.Dx() == 0 {
		return img
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}
