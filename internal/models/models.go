package models

import "time"

// Role identifies what kind of account is looking at (or acting on) a record.
type Role string

const (
	RoleProducer        Role = "producer"
	RoleDriver          Role = "driver"
	RoleTransporter     Role = "transporter"
	RoleServiceProvider Role = "service_provider"
	RoleAdmin           Role = "admin"
)

// Viewer is the (profile, role) pair used to compute visibility.
// It is supplied by the auth layer and never persisted here.
type Viewer struct {
	ProfileID string `json:"profile_id"`
	Role      Role   `json:"role"`
}

// Freight lifecycle statuses, in canonical forward order.
const (
	StatusOpen      = "OPEN"
	StatusAccepted  = "ACCEPTED"
	StatusLoading   = "LOADING"
	StatusInTransit = "IN_TRANSIT"
	StatusDelivered = "DELIVERED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusRejected  = "REJECTED"

	// StatusUnknown is the sentinel for a record with no usable status
	// source. Callers must not substitute a guessed default for it.
	StatusUnknown = "UNKNOWN"
)

// Service request statuses. ON_THE_WAY/IN_PROGRESS replace the freight
// LOADING/IN_TRANSIT legs; the rest of the ladder is shared.
const (
	StatusOnTheWay   = "ON_THE_WAY"
	StatusInProgress = "IN_PROGRESS"
)

// Freight is a rural transport contract owned by a producer.
type Freight struct {
	ID             string        `json:"id"`
	ProducerID     string        `json:"producer_id"`
	PricingType    string        `json:"pricing_type"` // raw; may carry legacy aliases
	Price          float64       `json:"price"`
	PricePerKm     float64       `json:"price_per_km"`
	PricePerTon    float64       `json:"price_per_ton"`
	RequiredTrucks int           `json:"required_trucks"`
	WeightKg       float64       `json:"weight_kg"`
	DistanceKm     float64       `json:"distance_km"`
	OriginCity     string        `json:"origin_city"`
	DestCity       string        `json:"dest_city"`
	Status         string        `json:"status"`
	Deal           *DealSnapshot `json:"deal,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// DealSnapshot is a closed/re-negotiated price agreement. When present it
// supersedes the freight's base pricing fields for display.
type DealSnapshot struct {
	AgreedPricingType string  `json:"agreed_pricing_type"`
	AgreedUnitRate    float64 `json:"agreed_unit_rate"`
	AgreedTotal       float64 `json:"agreed_total"`
}

// FreightAssignment is one driver's participation on a (possibly
// multi-truck) freight. AgreedPrice is the driver's own per-truck amount.
type FreightAssignment struct {
	FreightID   string    `json:"freight_id"`
	DriverID    string    `json:"driver_id"`
	Status      string    `json:"status"`
	AgreedPrice float64   `json:"agreed_price"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DriverTripProgress is the driver-reported live step for one freight.
// It may lag or lead the assignment row because the sync is asynchronous.
type DriverTripProgress struct {
	FreightID  string    `json:"freight_id"`
	DriverID   string    `json:"driver_id"`
	Status     string    `json:"status"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ReportedAt time.Time `json:"reported_at"`
}

// ServiceRequest is the urban/ad-hoc analog of Freight. The contact and
// location fields are PII and stay hidden until the request is accepted.
type ServiceRequest struct {
	ID           string    `json:"id"`
	RequesterID  string    `json:"requester_id"`
	ProviderID   string    `json:"provider_id,omitempty"`
	ServiceType  string    `json:"service_type"`
	Urgency      string    `json:"urgency"`
	Summary      string    `json:"summary"`
	City         string    `json:"city"`
	Status       string    `json:"status"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Lat          float64   `json:"lat,omitempty"`
	Lon          float64   `json:"lon,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
