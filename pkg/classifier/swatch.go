package classifier

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"
	"net/http"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/teslashibe/go-shade/pkg/inference"
	"github.com/teslashibe/go-shade/pkg/tone"
)

// Swatch chip layout in pixels.
const (
	chipWidth   = 96
	chipHeight  = 96
	labelHeight = 24
)

// LoadSwatch reads a swatch image from disk. PNG and JPEG are sent as is.
func LoadSwatch(path string) (inference.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return inference.Image{}, fmt.Errorf("classifier: read swatch: %w", err)
	}
	mime := http.DetectContentType(data)
	if mime != inference.MIMEPNG && mime != inference.MIMEJPEG {
		return inference.Image{}, fmt.Errorf("classifier: swatch %s: unsupported type %s", path, mime)
	}
	return inference.Image{Data: data, MIME: mime}, nil
}

// RenderSwatch draws one labeled chip per tone, left to right in registry
// order, so the model can read the names next to the colors.
func RenderSwatch(reg *tone.Registry) image.Image {
	n := reg.Len()
	img := image.NewRGBA(image.Rect(0, 0, n*chipWidth, chipHeight+labelHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for i, t := range reg.All() {
		chip := image.Rect(i*chipWidth+4, 4, (i+1)*chipWidth-4, chipHeight)
		r, g, b := t.Color.Clamped().RGB255()
		draw.Draw(img, chip, image.NewUniform(color.RGBA{r, g, b, 255}), image.Point{}, draw.Src)

		d := &font.Drawer{
			Dst:  img,
			Src:  image.Black,
			Face: face,
		}
		width := d.MeasureString(t.Name)
		x := fixed.I(i*chipWidth+chipWidth/2) - width/2
		d.Dot = fixed.Point26_6{X: x, Y: fixed.I(chipHeight + labelHeight - 7)}
		d.DrawString(t.Name)
	}
	return img
}

// SwatchFor loads the swatch at path, or renders one from the registry if
// path is empty or missing.
func SwatchFor(path string, reg *tone.Registry) (inference.Image, error) {
	if path != "" {
		img, err := LoadSwatch(path)
		if err == nil {
			return img, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return inference.Image{}, err
		}
	}
	return inference.FromImage(RenderSwatch(reg))
}
