// Package pii gates contact and location fields of service requests on
// the workflow status. Enforcing that only the matched counterpart sees
// the unmasked record is the persistence layer's job; this guard encodes
// the status threshold only.
package pii

import "github.com/example/agriroute/internal/models"

// VisibleForStatus reports whether contact/location fields may be shown.
// The threshold is acceptance: anything still OPEN (or in no status at
// all) exposes nothing identifying.
func VisibleForStatus(status string) bool {
	switch status {
	case "", models.StatusOpen, models.StatusUnknown:
		return false
	}
	return true
}

// Mask returns a copy of req with PII stripped when the status is below
// the visibility threshold. City, type, urgency and summary survive; the
// contact name and phone, street address and coordinates do not.
func Mask(req models.ServiceRequest, status string) models.ServiceRequest {
	if VisibleForStatus(status) {
		return req
	}
	req.ContactName = ""
	req.ContactPhone = ""
	req.Address = ""
	req.Lat = 0
	req.Lon = 0
	return req
}
