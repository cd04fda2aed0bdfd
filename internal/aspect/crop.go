package aspect

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/manash/slidegen/pkg/models"
)

// Epsilon is the tolerance under which an image already matches the target ratio.
const Epsilon = 1e-6

// ErrDegenerateCrop is returned when the target ratio would leave zero pixels
// along the cropped axis.
var ErrDegenerateCrop = fmt.Errorf("%w: crop window collapses to zero pixels", models.ErrInvalidArgument)

type Mode string

const (
	ModeCenter Mode = "center"
	ModeSmart  Mode = "smart"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeCenter:
		return ModeCenter, nil
	case ModeSmart:
		return ModeSmart, nil
	default:
		return "", fmt.Errorf("%w: crop mode %q must be center or smart", models.ErrInvalidArgument, s)
	}
}

// Matches reports whether a w x h image already has ratio r.
func Matches(w, h int, r Ratio) bool {
	return math.Abs(float64(w)/float64(h)-r.Value()) < Epsilon
}

// Window returns the centered crop rectangle for a w x h image, with the
// origin at (0, 0). When the image already matches, the full frame is returned.
func Window(w, h int, r Ratio) (image.Rectangle, error) {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: image has no pixels (%dx%d)", models.ErrInvalidArgument, w, h)
	}
	if r.W <= 0 || r.H <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: aspect %s", models.ErrInvalidArgument, r)
	}

	if Matches(w, h, r) {
		return image.Rect(0, 0, w, h), nil
	}

	target := r.Value()
	if float64(w)/float64(h) > target {
		newW := int(math.Floor(float64(h) * target))
		if newW <= 0 {
			return image.Rectangle{}, fmt.Errorf("%w: %dx%d at %s", ErrDegenerateCrop, w, h, r)
		}
		left := (w - newW) / 2
		return image.Rect(left, 0, left+newW, h), nil
	}

	newH := int(math.Floor(float64(w) / target))
	if newH <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d at %s", ErrDegenerateCrop, w, h, r)
	}
	top := (h - newH) / 2
	return image.Rect(0, top, w, top+newH), nil
}

// CropToAspect center-crops img to ratio r. An image that already matches is
// returned as is; otherwise a new image is allocated and img is left untouched.
func CropToAspect(img image.Image, r Ratio) (image.Image, error) {
	b := img.Bounds()
	win, err := Window(b.Dx(), b.Dy(), r)
	if err != nil {
		return nil, err
	}
	if win.Dx() == b.Dx() && win.Dy() == b.Dy() {
		return img, nil
	}
	return imaging.Crop(img, win.Add(b.Min)), nil
}

// Crop crops img to ratio r, placing the window according to mode.
func Crop(img image.Image, r Ratio, mode Mode) (image.Image, error) {
	switch mode {
	case "", ModeCenter:
		return CropToAspect(img, r)
	case ModeSmart:
		return SmartCrop(img, r)
	default:
		return nil, fmt.Errorf("%w: crop mode %q", models.ErrInvalidArgument, mode)
	}
}
