package valueobject

import (
	"fmt"
	"strings"
)

// MeasureUnit is the closed set of units a material or recipe line may be
// counted in. Wire values are lower case except litre ("L").
type MeasureUnit string

const (
	UnitKilogram   MeasureUnit = "kg"
	UnitGram       MeasureUnit = "g"
	UnitLitre      MeasureUnit = "L"
	UnitMillilitre MeasureUnit = "ml"
	UnitPiece      MeasureUnit = "pcs"
	UnitBox        MeasureUnit = "box"
	UnitBottle     MeasureUnit = "bottle"
	UnitCan        MeasureUnit = "can"
	UnitBag        MeasureUnit = "bag"
)

// Dimension groups units that measure the same physical quantity
type Dimension string

const (
	DimensionMass      Dimension = "mass"
	DimensionVolume    Dimension = "volume"
	DimensionCount     Dimension = "count"
	DimensionPackaging Dimension = "packaging"
)

// AllMeasureUnits returns every supported unit
func AllMeasureUnits() []MeasureUnit {
	return []MeasureUnit{
		UnitKilogram, UnitGram, UnitLitre, UnitMillilitre,
		UnitPiece, UnitBox, UnitBottle, UnitCan, UnitBag,
	}
}

// ParseMeasureUnit maps a wire string onto a MeasureUnit. Matching is case
// insensitive, so "l", "L" and "KG" are all accepted.
func ParseMeasureUnit(s string) (MeasureUnit, error) {
	s = strings.TrimSpace(s)
	for _, u := range AllMeasureUnits() {
		if strings.EqualFold(string(u), s) {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown unit of measure %q", s)
}

// String returns the wire representation
func (u MeasureUnit) String() string {
	return string(u)
}

// IsValid returns true if the unit is one of the supported units
func (u MeasureUnit) IsValid() bool {
	return u.Dimension() != ""
}

// Dimension returns the physical dimension of the unit, or "" if unknown
func (u MeasureUnit) Dimension() Dimension {
	switch u {
	case UnitKilogram, UnitGram:
		return DimensionMass
	case UnitLitre, UnitMillilitre:
		return DimensionVolume
	case UnitPiece:
		return DimensionCount
	case UnitBox, UnitBottle, UnitCan, UnitBag:
		return DimensionPackaging
	default:
		return ""
	}
}

// CompatibleWith reports whether quantities in u can be compared directly
// against quantities in other. No conversion is ever applied, so only an
// identical unit qualifies.
func (u MeasureUnit) CompatibleWith(other MeasureUnit) bool {
	return u.IsValid() && u == other
}

// SameDimension reports whether both units measure the same kind of thing
func (u MeasureUnit) SameDimension(other MeasureUnit) bool {
	return u.IsValid() && u.Dimension() == other.Dimension()
}
