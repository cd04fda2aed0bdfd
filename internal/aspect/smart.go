package aspect

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
)

type resizer struct {
	filter imaging.ResampleFilter
}

func (r resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.filter)
}

// SmartWindow returns a crop window with the same size as Window but centered
// on the region the content analyzer scores highest, clamped to the frame.
func SmartWindow(img image.Image, r Ratio) (image.Rectangle, error) {
	b := img.Bounds()
	win, err := Window(b.Dx(), b.Dy(), r)
	if err != nil {
		return image.Rectangle{}, err
	}
	if win.Dx() == b.Dx() && win.Dy() == b.Dy() {
		return win, nil
	}

	analyzer := smartcrop.NewAnalyzer(resizer{filter: imaging.Linear})
	best, err := analyzer.FindBestCrop(img, win.Dx(), win.Dy())
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("finding best crop: %w", err)
	}

	center := best.Min.Add(best.Max).Div(2).Sub(b.Min)
	x := clamp(center.X-win.Dx()/2, 0, b.Dx()-win.Dx())
	y := clamp(center.Y-win.Dy()/2, 0, b.Dy()-win.Dy())
	return image.Rect(x, y, x+win.Dx(), y+win.Dy()), nil
}

// SmartCrop crops img to ratio r around its most salient region.
func SmartCrop(img image.Image, r Ratio) (image.Image, error) {
	win, err := SmartWindow(img, r)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if win.Dx() == b.Dx() && win.Dy() == b.Dy() {
		return img, nil
	}
	return imaging.Crop(img, win.Add(b.Min)), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
