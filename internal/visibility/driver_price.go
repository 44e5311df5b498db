package visibility

import "math"

// DisplayMode tags how a driver-facing price should be labeled.
type DisplayMode string

const (
	PerTruck DisplayMode = "PER_TRUCK"
	Total    DisplayMode = "TOTAL"
)

// agreedPriceTolerance is the absolute difference under which a stored
// agreed price is considered equal to the freight's full price.
const agreedPriceTolerance = 0.01

// DriverPriceInput are the fields needed to compute a driver-safe price.
type DriverPriceInput struct {
	FreightPrice          float64
	RequiredTrucks        int
	AssignmentAgreedPrice float64
}

// DriverPrice is the amount a driver-facing surface may show.
type DriverPrice struct {
	DisplayPrice           float64     `json:"display_price"`
	DisplayMode            DisplayMode `json:"display_mode"`
	OriginalRequiredTrucks int         `json:"original_required_trucks"`
}

// DriverVisiblePrice computes the price a driver may see. It is the last
// line of defense on driver surfaces, applied regardless of what
// ResolveMode returned upstream: a driver must never see a multi-truck
// freight's aggregate value.
//
// On multi-truck freights an agreed price equal (within tolerance) to the
// freight's full price is treated as a legacy write bug where the total
// was stored instead of the per-truck share, and is divided back down.
// Compatibility shim; remove once data owners confirm new writes cannot
// produce this shape.
func DriverVisiblePrice(in DriverPriceInput) DriverPrice {
	required := in.RequiredTrucks
	if required < 1 {
		required = 1
	}

	if in.AssignmentAgreedPrice > 0 {
		if required > 1 && math.Abs(in.AssignmentAgreedPrice-in.FreightPrice) <= agreedPriceTolerance {
			return DriverPrice{
				DisplayPrice:           in.FreightPrice / float64(required),
				DisplayMode:            PerTruck,
				OriginalRequiredTrucks: required,
			}
		}
		mode := Total
		if required > 1 {
			mode = PerTruck
		}
		return DriverPrice{
			DisplayPrice:           in.AssignmentAgreedPrice,
			DisplayMode:            mode,
			OriginalRequiredTrucks: required,
		}
	}

	if required > 1 {
		return DriverPrice{
			DisplayPrice:           in.FreightPrice / float64(required),
			DisplayMode:            PerTruck,
			OriginalRequiredTrucks: required,
		}
	}
	return DriverPrice{
		DisplayPrice:           in.FreightPrice,
		DisplayMode:            Total,
		OriginalRequiredTrucks: required,
	}
}
