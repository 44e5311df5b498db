package pricing

import (
	"math"
	"strings"

	"github.com/example/agriroute/internal/models"
)

// Type is the canonical pricing contract of a freight.
type Type int

const (
	PerVehicle Type = iota
	PerKm
	PerTon
)

func (t Type) String() string {
	switch t {
	case PerVehicle:
		return "PER_VEHICLE"
	case PerKm:
		return "PER_KM"
	case PerTon:
		return "PER_TON"
	}
	return "INVALID"
}

// Suffix is the display suffix appended to the unit rate.
func (t Type) Suffix() string {
	switch t {
	case PerVehicle:
		return "/veíc"
	case PerKm:
		return "/km"
	case PerTon:
		return "/ton"
	}
	return ""
}

// typeAliases maps every stored spelling (current and legacy) to the
// canonical type. Legacy tolerance lives only here; nothing past the
// normalization boundary sees alias strings.
var typeAliases = map[string]Type{
	"PER_VEHICLE":  PerVehicle,
	"FIXED":        PerVehicle,
	"FIXO":         PerVehicle,
	"TOTAL":        PerVehicle,
	"PER_KM":       PerKm,
	"POR_KM":       PerKm,
	"KM":           PerKm,
	"PER_TON":      PerTon,
	"POR_TON":      PerTon,
	"TON":          PerTon,
	"PER_TONELADA": PerTon,
}

// ParseType resolves a raw pricing-type string, case-insensitively,
// through the alias table. Unknown spellings fail rather than guess.
func ParseType(raw string) (Type, bool) {
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(raw))]
	return t, ok
}

// Raw carries the stored pricing fields of a freight before normalization.
type Raw struct {
	PricingType    string
	Price          float64
	PricePerKm     float64
	PricePerTon    float64
	DistanceKm     float64
	WeightKg       float64
	RequiredTrucks int
}

// RawFromFreight extracts the pricing-relevant fields of a freight record.
func RawFromFreight(f models.Freight) Raw {
	return Raw{
		PricingType:    f.PricingType,
		Price:          f.Price,
		PricePerKm:     f.PricePerKm,
		PricePerTon:    f.PricePerTon,
		DistanceKm:     f.DistanceKm,
		WeightKg:       f.WeightKg,
		RequiredTrucks: f.RequiredTrucks,
	}
}

// Input is the canonical pricing contract derived from a raw record.
// DistanceKm, WeightTons and RequiredTrucks are informational only.
type Input struct {
	Type           Type
	UnitRate       float64
	DistanceKm     float64
	WeightTons     float64
	RequiredTrucks int
}

// Normalize maps a raw record onto one of the three canonical contracts.
// The unit rate per type:
//
//	PerVehicle: Price, always the full per-vehicle rate — never divided
//	            by the truck count.
//	PerTon:     PricePerTon when positive, else PricePerKm (historical
//	            overload of the km field for ton pricing).
//	PerKm:      PricePerKm.
//
// A rate is accepted only if finite and strictly positive; anything else
// fails the whole normalization so callers surface "pricing unavailable"
// instead of a zero or guessed amount.
func Normalize(raw Raw) (Input, bool) {
	t, ok := ParseType(raw.PricingType)
	if !ok {
		return Input{}, false
	}

	var rate float64
	switch t {
	case PerVehicle:
		rate = raw.Price
	case PerTon:
		rate = raw.PricePerTon
		if rate <= 0 {
			rate = raw.PricePerKm
		}
	case PerKm:
		rate = raw.PricePerKm
	}
	if !validRate(rate) {
		return Input{}, false
	}

	trucks := raw.RequiredTrucks
	if trucks < 1 {
		trucks = 1
	}
	return Input{
		Type:           t,
		UnitRate:       rate,
		DistanceKm:     raw.DistanceKm,
		WeightTons:     raw.WeightKg / 1000.0,
		RequiredTrucks: trucks,
	}, true
}

func validRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
