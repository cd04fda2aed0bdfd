package aspect

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/manash/slidegen/pkg/models"
)

// Ratio is a target width:height ratio such as 16:9.
type Ratio struct {
	W float64
	H float64
}

// ParseRatio parses strings of the form "a:b" where a and b are positive numbers.
func ParseRatio(s string) (Ratio, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Ratio{}, fmt.Errorf("%w: aspect %q must look like 16:9", models.ErrInvalidArgument, s)
	}

	w, err := parseSide(parts[0])
	if err != nil {
		return Ratio{}, fmt.Errorf("%w: aspect %q: %v", models.ErrInvalidArgument, s, err)
	}
	h, err := parseSide(parts[1])
	if err != nil {
		return Ratio{}, fmt.Errorf("%w: aspect %q: %v", models.ErrInvalidArgument, s, err)
	}

	return Ratio{W: w, H: h}, nil
}

func parseSide(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%q must be a positive number", s)
	}
	return v, nil
}

// Value returns the ratio as width divided by height.
func (r Ratio) Value() float64 {
	return r.W / r.H
}

func (r Ratio) String() string {
	return strconv.FormatFloat(r.W, 'f', -1, 64) + ":" + strconv.FormatFloat(r.H, 'f', -1, 64)
}
