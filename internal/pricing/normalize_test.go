package pricing

import (
	"math"
	"testing"
)

func TestParseTypeAliases(t *testing.T) {
	cases := map[string]Type{
		"PER_VEHICLE":  PerVehicle,
		"fixed":        PerVehicle,
		"Fixo":         PerVehicle,
		"TOTAL":        PerVehicle,
		"per_km":       PerKm,
		"POR_KM":       PerKm,
		"km":           PerKm,
		"PER_TON":      PerTon,
		"por_ton":      PerTon,
		"TON":          PerTon,
		"per_tonelada": PerTon,
		" per_km ":     PerKm,
	}
	for raw, want := range cases {
		got, ok := ParseType(raw)
		if !ok || got != want {
			t.Errorf("ParseType(%q) = %v,%v, want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseType("POR_VIAGEM"); ok {
		t.Error("unknown type must not parse")
	}
}

func TestNormalizePerVehicleNeverDivides(t *testing.T) {
	in, ok := Normalize(Raw{PricingType: "PER_VEHICLE", Price: 1500, RequiredTrucks: 4})
	if !ok {
		t.Fatal("expected ok")
	}
	if in.UnitRate != 1500 {
		t.Fatalf("per-vehicle rate must stay 1500, got %f", in.UnitRate)
	}
	if in.RequiredTrucks != 4 {
		t.Fatalf("required trucks = %d", in.RequiredTrucks)
	}
}

func TestNormalizePerTonPrefersExplicitRate(t *testing.T) {
	in, ok := Normalize(Raw{PricingType: "PER_TON", PricePerTon: 80, PricePerKm: 3})
	if !ok || in.UnitRate != 80 {
		t.Fatalf("got %v %v, want rate 80", in, ok)
	}
}

func TestNormalizePerTonLegacyKmFallback(t *testing.T) {
	in, ok := Normalize(Raw{PricingType: "POR_TON", PricePerKm: 3.5})
	if !ok || in.UnitRate != 3.5 {
		t.Fatalf("got %v %v, want legacy km fallback 3.5", in, ok)
	}
}

func TestNormalizeRejectsBadRates(t *testing.T) {
	bad := []Raw{
		{PricingType: "PER_KM", PricePerKm: 0},
		{PricingType: "PER_KM", PricePerKm: -2},
		{PricingType: "PER_KM", PricePerKm: math.Inf(1)},
		{PricingType: "PER_KM", PricePerKm: math.NaN()},
		{PricingType: "PER_VEHICLE", Price: 0},
		{PricingType: "", Price: 100},
	}
	for i, raw := range bad {
		if _, ok := Normalize(raw); ok {
			t.Errorf("case %d: expected normalization failure for %+v", i, raw)
		}
	}
}

func TestNormalizeConvertsWeightAndClampsTrucks(t *testing.T) {
	in, ok := Normalize(Raw{PricingType: "PER_TON", PricePerTon: 80, WeightKg: 32000, RequiredTrucks: 0})
	if !ok {
		t.Fatal("expected ok")
	}
	if in.WeightTons != 32 {
		t.Fatalf("weight tons = %f, want 32", in.WeightTons)
	}
	if in.RequiredTrucks != 1 {
		t.Fatalf("required trucks clamped to 1, got %d", in.RequiredTrucks)
	}
}
