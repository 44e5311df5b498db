package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/agriroute/internal/models"
	"github.com/example/agriroute/internal/progress"
	"github.com/example/agriroute/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore, *progress.MemoryStore) {
	t.Helper()
	st := storage.NewMemoryStore()
	pr := progress.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(st, pr, nil, nil, logger), st, pr
}

func seedFreight(t *testing.T, st *storage.MemoryStore) models.Freight {
	t.Helper()
	f := models.Freight{
		ID:             "f1",
		ProducerID:     "prod-1",
		PricingType:    "PER_VEHICLE",
		Price:          1500,
		RequiredTrucks: 4,
		Status:         models.StatusOpen,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := st.SaveFreight(&f); err != nil {
		t.Fatal(err)
	}
	return f
}

func doJSON(t *testing.T, s *Server, method, path string, viewer models.Viewer, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if viewer.ProfileID != "" {
		req.Header.Set("X-Profile-ID", viewer.ProfileID)
	}
	if viewer.Role != "" {
		req.Header.Set("X-Role", string(viewer.Role))
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestQuoteProducerSeesTotalDriverDoesNot(t *testing.T) {
	s, st, _ := newTestServer(t)
	seedFreight(t, st)

	w := doJSON(t, s, "GET", "/api/v1/freights/f1/quote", models.Viewer{ProfileID: "prod-1", Role: models.RoleProducer}, nil)
	if w.Code != 200 {
		t.Fatalf("producer quote status %d: %s", w.Code, w.Body.String())
	}
	type quoteResp struct {
		Mode  string `json:"mode"`
		Quote struct {
			PrimaryText   string `json:"primary_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"quote"`
	}
	var resp quoteResp
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Quote.PrimaryText != "R$ 1.500,00/veíc" {
		t.Fatalf("primary = %q", resp.Quote.PrimaryText)
	}
	if resp.Quote.SecondaryText == "" {
		t.Fatal("producer must see aggregate guidance")
	}

	w = doJSON(t, s, "GET", "/api/v1/freights/f1/quote", models.Viewer{ProfileID: "drv-1", Role: models.RoleDriver}, nil)
	resp = quoteResp{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Quote.PrimaryText != "R$ 1.500,00/veíc" {
		t.Fatalf("driver primary = %q, must match producer's unit rate", resp.Quote.PrimaryText)
	}
	if resp.Quote.SecondaryText != "" {
		t.Fatalf("driver received aggregate figure %q", resp.Quote.SecondaryText)
	}
}

func TestQuoteUnknownPricingUnavailable(t *testing.T) {
	s, st, _ := newTestServer(t)
	f := models.Freight{ID: "f2", ProducerID: "prod-1", PricingType: "POR_SACO", Price: 10, Status: models.StatusOpen}
	st.SaveFreight(&f)

	w := doJSON(t, s, "GET", "/api/v1/freights/f2/quote", models.Viewer{ProfileID: "prod-1", Role: models.RoleProducer}, nil)
	if w.Code != 422 {
		t.Fatalf("status %d, want 422 pricing unavailable", w.Code)
	}
}

func TestDriverPriceLegacyCorrection(t *testing.T) {
	s, st, _ := newTestServer(t)
	f := seedFreight(t, st)
	st.SaveAssignment(&models.FreightAssignment{
		FreightID: f.ID, DriverID: "drv-1", Status: models.StatusAccepted, AgreedPrice: 1500,
	})

	w := doJSON(t, s, "GET", "/api/v1/freights/f1/driver-price", models.Viewer{ProfileID: "drv-1", Role: models.RoleDriver}, nil)
	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	var resp struct {
		DisplayPrice float64 `json:"display_price"`
		DisplayMode  string  `json:"display_mode"`
		DisplayText  string  `json:"display_text"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	// agreed price equals the full freight price on a 4-truck contract:
	// the legacy-bug correction divides it back down
	if resp.DisplayPrice != 375 || resp.DisplayMode != "PER_TRUCK" {
		t.Fatalf("got %+v", resp)
	}
	if resp.DisplayText != "R$ 375,00" {
		t.Fatalf("display text %q", resp.DisplayText)
	}

	w = doJSON(t, s, "GET", "/api/v1/freights/f1/driver-price", models.Viewer{ProfileID: "prod-1", Role: models.RoleProducer}, nil)
	if w.Code != 403 {
		t.Fatalf("non-driver on driver surface: status %d", w.Code)
	}
}

func TestEffectiveStatusTripProgressWins(t *testing.T) {
	s, st, pr := newTestServer(t)
	f := seedFreight(t, st)
	st.SaveAssignment(&models.FreightAssignment{FreightID: f.ID, DriverID: "drv-1", Status: models.StatusAccepted})
	pr.Set(context.Background(), models.DriverTripProgress{FreightID: f.ID, DriverID: "drv-1", Status: models.StatusDelivered})

	w := doJSON(t, s, "GET", "/api/v1/freights/f1/status?driver_id=drv-1", models.Viewer{ProfileID: "prod-1", Role: models.RoleProducer}, nil)
	var resp struct {
		EffectiveStatus string `json:"effective_status"`
		StillActive     bool   `json:"still_active"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.EffectiveStatus != models.StatusDelivered {
		t.Fatalf("effective = %q, want DELIVERED", resp.EffectiveStatus)
	}
	if resp.StillActive {
		t.Fatal("delivered participation is not active")
	}
}

func TestFreightTransitionGuardAndArchive(t *testing.T) {
	s, st, _ := newTestServer(t)
	seedFreight(t, st)
	producer := models.Viewer{ProfileID: "prod-1", Role: models.RoleProducer}
	driver := models.Viewer{ProfileID: "drv-1", Role: models.RoleDriver}

	// skip is rejected with a conflict
	w := doJSON(t, s, "POST", "/api/v1/freights/f1/transition", producer, transitionRequest{To: models.StatusInTransit})
	if w.Code != 409 {
		t.Fatalf("skip transition: status %d", w.Code)
	}

	steps := []struct {
		viewer models.Viewer
		to     string
	}{
		{producer, models.StatusAccepted},
		{driver, models.StatusLoading},
		{driver, models.StatusInTransit},
		{driver, models.StatusDelivered},
		{producer, models.StatusCompleted},
	}
	for _, step := range steps {
		w = doJSON(t, s, "POST", "/api/v1/freights/f1/transition", step.viewer, transitionRequest{To: step.to})
		if w.Code != 200 {
			t.Fatalf("transition to %s: status %d: %s", step.to, w.Code, w.Body.String())
		}
	}

	// terminal completion archived the freight out of the live table
	if _, err := st.GetFreight("f1"); err == nil {
		t.Fatal("completed freight still in live table")
	}
	if _, ok := st.GetArchived("f1"); !ok {
		t.Fatal("completed freight missing from history")
	}
}

func TestServiceRequestPiiMasking(t *testing.T) {
	s, st, _ := newTestServer(t)
	req := models.ServiceRequest{
		ID: "sr1", RequesterID: "prod-1", ServiceType: "mecânico", City: "Sorriso",
		Status: models.StatusOpen, ContactName: "João", ContactPhone: "+55 65 9", Address: "BR-163", Lat: -12.5, Lon: -55.7,
	}
	st.SaveServiceRequest(&req)

	w := doJSON(t, s, "GET", "/api/v1/service-requests/sr1", models.Viewer{ProfileID: "prov-1", Role: models.RoleServiceProvider}, nil)
	var got models.ServiceRequest
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.ContactName != "" || got.ContactPhone != "" || got.Address != "" || got.Lat != 0 {
		t.Fatalf("PII leaked to provider pre-acceptance: %+v", got)
	}
	if got.City != "Sorriso" {
		t.Fatal("non-identifying fields must survive")
	}

	// the requester always sees their own record in full
	w = doJSON(t, s, "GET", "/api/v1/service-requests/sr1", models.Viewer{ProfileID: "prod-1", Role: models.RoleProducer}, nil)
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.ContactPhone == "" {
		t.Fatal("requester must see own PII")
	}

	// once accepted, the counterpart sees the full record
	w = doJSON(t, s, "POST", "/api/v1/service-requests/sr1/transition", models.Viewer{ProfileID: "prov-1", Role: models.RoleServiceProvider}, transitionRequest{To: models.StatusAccepted})
	if w.Code != 200 {
		t.Fatalf("accept: status %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, "GET", "/api/v1/service-requests/sr1", models.Viewer{ProfileID: "prov-1", Role: models.RoleServiceProvider}, nil)
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.ContactPhone == "" || got.Address == "" {
		t.Fatal("accepted request must expose contact fields")
	}
}

func TestCloseDealInvalidatesQuote(t *testing.T) {
	s, st, _ := newTestServer(t)
	seedFreight(t, st)
	producer := models.Viewer{ProfileID: "prod-1", Role: models.RoleProducer}

	doJSON(t, s, "GET", "/api/v1/freights/f1/quote", producer, nil)

	w := doJSON(t, s, "POST", "/api/v1/freights/f1/deal", producer,
		models.DealSnapshot{AgreedPricingType: "PER_VEHICLE", AgreedUnitRate: 1350, AgreedTotal: 5400})
	if w.Code != 200 {
		t.Fatalf("close deal: status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, "GET", "/api/v1/freights/f1/quote", producer, nil)
	var resp struct {
		Quote struct {
			PrimaryText string `json:"primary_text"`
		} `json:"quote"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Quote.PrimaryText != "R$ 1.350,00/veíc" {
		t.Fatalf("quote after deal = %q, want agreed rate", resp.Quote.PrimaryText)
	}

	// a driver must not close deals
	w = doJSON(t, s, "POST", "/api/v1/freights/f1/deal", models.Viewer{ProfileID: "drv-1", Role: models.RoleDriver},
		models.DealSnapshot{AgreedPricingType: "PER_VEHICLE", AgreedUnitRate: 1})
	if w.Code != 403 {
		t.Fatalf("driver deal close: status %d", w.Code)
	}
}
