// Package visibility decides who may see aggregate freight pricing.
// Every pricing-display code path consults ResolveMode; no other module
// is allowed to make its own call on whether totals are shown.
package visibility

import "github.com/example/agriroute/internal/models"

// Mode is the pricing visibility granted to a viewer.
type Mode string

const (
	// UnitOnly exposes the unit rate and nothing aggregate.
	UnitOnly Mode = "UNIT_ONLY"
	// RequesterFull exposes totals and derived figures.
	RequesterFull Mode = "REQUESTER_FULL"
)

// ResolveMode applies the visibility decision table, first match wins:
//
//  1. missing viewer id or role: UnitOnly (fail closed)
//  2. admin: RequesterFull (operational exception)
//  3. producer viewing their own freight: RequesterFull
//  4. everyone else: UnitOnly
func ResolveMode(viewer models.Viewer, freightOwnerID string) Mode {
	if viewer.ProfileID == "" || viewer.Role == "" {
		return UnitOnly
	}
	if viewer.Role == models.RoleAdmin {
		return RequesterFull
	}
	if viewer.Role == models.RoleProducer && viewer.ProfileID == freightOwnerID {
		return RequesterFull
	}
	return UnitOnly
}
