package pricing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/example/agriroute/internal/models"
)

// Quote is the display-ready pricing of one freight.
type Quote struct {
	OK            bool    `json:"ok"`
	PrimaryText   string  `json:"primary_text"`
	SecondaryText string  `json:"secondary_text,omitempty"`
	Type          string  `json:"type"`
	UnitRate      float64 `json:"unit_rate"`
}

// Opts controls how much of a quote the caller is entitled to.
// UnitOnly strips every aggregate/derived figure from the result.
type Opts struct {
	UnitOnly bool
}

// Resolver computes quotes and memoizes them per freight id. The cache is
// purely a performance shortcut: entries carry a fingerprint of the
// pricing-relevant fields, so a stale entry is recomputed, and Invalidate
// lets upstream code drop an entry explicitly when a freight is
// re-negotiated. Safe for concurrent use.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]cachedQuote
}

type cachedQuote struct {
	fingerprint string
	quote       Quote
}

func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]cachedQuote)}
}

// Resolve returns the quote for f. A failed normalization yields
// Quote{OK: false}; callers must render a "pricing unavailable" state.
func (r *Resolver) Resolve(f models.Freight, opts Opts) Quote {
	fp := fingerprint(f)

	r.mu.RLock()
	e, hit := r.cache[f.ID]
	r.mu.RUnlock()

	if !hit || e.fingerprint != fp {
		q := computeQuote(f)
		if f.ID != "" {
			r.mu.Lock()
			r.cache[f.ID] = cachedQuote{fingerprint: fp, quote: q}
			r.mu.Unlock()
		}
		e = cachedQuote{fingerprint: fp, quote: q}
	}

	q := e.quote
	if opts.UnitOnly {
		q.SecondaryText = ""
	}
	return q
}

// Invalidate drops the cached quote for one freight id.
func (r *Resolver) Invalidate(freightID string) {
	r.mu.Lock()
	delete(r.cache, freightID)
	r.mu.Unlock()
}

// Clear drops every cached quote.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.cache = make(map[string]cachedQuote)
	r.mu.Unlock()
}

func fingerprint(f models.Freight) string {
	var deal string
	if f.Deal != nil {
		deal = fmt.Sprintf("%s|%.4f|%.4f", f.Deal.AgreedPricingType, f.Deal.AgreedUnitRate, f.Deal.AgreedTotal)
	}
	return fmt.Sprintf("%s|%.4f|%.4f|%.4f|%d|%.2f|%.2f|%s",
		f.PricingType, f.Price, f.PricePerKm, f.PricePerTon,
		f.RequiredTrucks, f.WeightKg, f.DistanceKm, deal)
}

// computeQuote builds the full-visibility quote. A closed deal with both an
// agreed type and a positive agreed rate supersedes the base pricing fields.
func computeQuote(f models.Freight) Quote {
	in, ok := Normalize(RawFromFreight(f))
	var agreedTotal float64

	if d := f.Deal; d != nil {
		if dt, dok := ParseType(d.AgreedPricingType); dok && validRate(d.AgreedUnitRate) {
			trucks := f.RequiredTrucks
			if trucks < 1 {
				trucks = 1
			}
			in = Input{
				Type:           dt,
				UnitRate:       d.AgreedUnitRate,
				DistanceKm:     f.DistanceKm,
				WeightTons:     f.WeightKg / 1000.0,
				RequiredTrucks: trucks,
			}
			ok = true
			agreedTotal = d.AgreedTotal
		}
	}
	if !ok {
		return Quote{}
	}

	return Quote{
		OK:            true,
		PrimaryText:   FormatBRL(in.UnitRate) + in.Type.Suffix(),
		SecondaryText: secondaryText(in, agreedTotal),
		Type:          in.Type.String(),
		UnitRate:      in.UnitRate,
	}
}

func secondaryText(in Input, agreedTotal float64) string {
	total := agreedTotal
	if total <= 0 {
		switch in.Type {
		case PerVehicle:
			total = in.UnitRate * float64(in.RequiredTrucks)
		case PerKm:
			total = in.UnitRate * in.DistanceKm
		case PerTon:
			total = in.UnitRate * in.WeightTons
		}
	}

	parts := make([]string, 0, 2)
	if total > 0 {
		parts = append(parts, "Total "+FormatBRL(total))
	}
	switch in.Type {
	case PerVehicle:
		if in.RequiredTrucks > 1 {
			parts = append(parts, fmt.Sprintf("%d carretas", in.RequiredTrucks))
		}
	case PerKm:
		if in.DistanceKm > 0 {
			parts = append(parts, formatQty(in.DistanceKm)+" km")
		}
	case PerTon:
		if in.WeightTons > 0 {
			parts = append(parts, formatQty(in.WeightTons)+" t")
		}
	}
	return strings.Join(parts, " · ")
}
