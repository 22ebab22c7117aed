package measure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Convention names how a scale bar's pixel width becomes a unit length.
type Convention string

const (
	// ConventionNone means no scale bar: dimensions stay in pixels.
	ConventionNone Convention = "none"

	// ConventionReference is the 2 cm reference bar. The divisor is half
	// the bar's width and the unit is always centimetres.
	ConventionReference Convention = "reference"

	// ConventionOperatorUnit is a bar one unit long, the unit named by the
	// operator. The divisor is the bar's full width.
	ConventionOperatorUnit Convention = "operator_unit"
)

const (
	// ReferenceLength is the length of a reference bar in ReferenceUnit.
	ReferenceLength = 2
	ReferenceUnit   = "cm"
	UnitPixels      = "pixels"
)

// Dimensions are a width and height, in pixels or a real unit.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Divisor returns the number of pixels per unit for a bar barWidth pixels
// wide under convention c.
func Divisor(barWidth float64, c Convention) (float64, error) {
	if c == ConventionNone {
		return 1, nil
	}
	if barWidth <= 0 || math.IsNaN(barWidth) || math.IsInf(barWidth, 0) {
		return 0, fmt.Errorf("scale bar width must be positive, got %v", barWidth)
	}
	switch c {
	case ConventionReference:
		return barWidth / ReferenceLength, nil
	case ConventionOperatorUnit:
		return barWidth, nil
	default:
		return 0, fmt.Errorf("unknown scale convention %q", c)
	}
}

// Scale converts label pixel dimensions into units of a scale bar barWidth
// pixels wide. Each component is rounded to three decimals.
//
// With ConventionNone barWidth is ignored and the dimensions are only
// rounded.
func Scale(label Dimensions, barWidth float64, c Convention) (Dimensions, error) {
	d, err := Divisor(barWidth, c)
	if err != nil {
		return Dimensions{}, err
	}
	return Dimensions{
		Width:  round3(label.Width / d),
		Height: round3(label.Height / d),
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// formatNumber prints v with the fewest digits that read back exactly,
// always keeping a decimal point: 20 prints as "20.0", 4.56 as "4.56".
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// FormatReport renders dimensions the way the measurement is reported to
// the operator, e.g. "Dimensions: 20.0, 10.0 [cm]".
func FormatReport(d Dimensions, unit string) string {
	return fmt.Sprintf("Dimensions: %s, %s [%s]", formatNumber(d.Width), formatNumber(d.Height), unit)
}
