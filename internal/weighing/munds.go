package weighing

import (
	"fmt"
	"math"
)

// KgPerMund is the weight of one mund.
const KgPerMund = 40

// maxSplitKg is the largest kilogram amount held exactly in a float64; larger inputs saturate.
const maxSplitKg = 1 << 53

// Munds is a kilogram amount split into whole munds and a kilogram remainder.
// Munds and Remainder always describe the absolute value; Negative carries the sign.
type Munds struct {
	Negative  bool `json:"negative"`
	Munds     int  `json:"munds"`
	Remainder int  `json:"remainder_kg"`
}

// ToMunds rounds |kg| to the nearest kilogram once and splits the result,
// so Munds*40 + Remainder equals the rounded absolute value and Remainder is in [0, 40).
func ToMunds(kg float64) Munds {
	if math.IsNaN(kg) || math.IsInf(kg, 0) {
		return Munds{}
	}

	rounded := math.Round(math.Abs(kg))
	if rounded > maxSplitKg {
		rounded = maxSplitKg
	}
	abs := int64(rounded)
	m := Munds{
		Negative:  kg < 0 && abs > 0,
		Munds:     int(abs / KgPerMund),
		Remainder: int(abs % KgPerMund),
	}
	return m.normalize()
}

// normalize folds a full mund of remainder into Munds.
func (m Munds) normalize() Munds {
	for m.Remainder >= KgPerMund {
		m.Munds++
		m.Remainder -= KgPerMund
	}
	return m
}

// kilograms returns the signed kilogram value the split represents.
func (m Munds) kilograms() int {
	kg := m.Munds*KgPerMund + m.Remainder
	if m.Negative {
		return -kg
	}
	return kg
}

func (m Munds) String() string {
	sign := ""
	if m.Negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%d munds %d kg", sign, m.Munds, m.Remainder)
}
