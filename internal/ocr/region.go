package ocr

import (
	"fmt"
	"image"
	"math"
)

// Region is a crop box expressed as fractions of the image size.
type Region struct {
	Left   float64 `yaml:"left" envconfig:"OCR_REGION_LEFT"`
	Top    float64 `yaml:"top" envconfig:"OCR_REGION_TOP"`
	Right  float64 `yaml:"right" envconfig:"OCR_REGION_RIGHT"`
	Bottom float64 `yaml:"bottom" envconfig:"OCR_REGION_BOTTOM"`
}

// DefaultRegion is the top-centre band where the CP value renders on
// portrait phone screenshots. Other aspect ratios need recalibration.
var DefaultRegion = Region{Left: 0.3, Top: 0.02, Right: 0.7, Bottom: 0.2}

// IsZero reports whether no region was configured.
func (r Region) IsZero() bool {
	return r == Region{}
}

// Validate checks that the fractions describe a non-empty box inside the image.
func (r Region) Validate() error {
	for _, v := range []float64{r.Left, r.Top, r.Right, r.Bottom} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("ocr: region fractions must be within [0, 1], got %+v", r)
		}
	}
	if r.Left >= r.Right || r.Top >= r.Bottom {
		return fmt.Errorf("ocr: region is empty: %+v", r)
	}
	return nil
}

// Rect converts the fractions into pixel coordinates for bounds. Halves
// round to even.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	return image.Rect(
		bounds.Min.X+int(math.RoundToEven(w*r.Left)),
		bounds.Min.Y+int(math.RoundToEven(h*r.Top)),
		bounds.Min.X+int(math.RoundToEven(w*r.Right)),
		bounds.Min.Y+int(math.RoundToEven(h*r.Bottom)),
	)
}
