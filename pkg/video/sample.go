package video

import (
	"image"
	"image/color"
	"math"
)

// Sample is the result of reading frame colors at a set of points.
type Sample struct {
	// Colors holds one entry per requested point; points outside the frame
	// are zero and listed in Missed.
	Colors []color.RGBA

	// Missed lists the indices of points outside the frame.
	Missed []int

	// Average is the mean of the in-bounds colors.
	Average color.RGBA

	// Count is the number of in-bounds points.
	Count int
}

// SampleAverage reads img at each point and averages the results. ok is
// false when no point falls inside the frame.
func SampleAverage(img image.Image, points []image.Point) (s Sample, ok bool) {
	b := img.Bounds()
	s.Colors = make([]color.RGBA, len(points))

	var rSum, gSum, bSum float64
	for i, p := range points {
		p = p.Add(b.Min)
		if !p.In(b) {
			s.Missed = append(s.Missed, i)
			continue
		}
		c := color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
		s.Colors[i] = c
		rSum += float64(c.R)
		gSum += float64(c.G)
		bSum += float64(c.B)
		s.Count++
	}
	if s.Count == 0 {
		return s, false
	}

	n := float64(s.Count)
	s.Average = color.RGBA{
		R: uint8(math.Round(rSum / n)),
		G: uint8(math.Round(gSum / n)),
		B: uint8(math.Round(bSum / n)),
		A: 0xff,
	}
	return s, true
}
