package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/agriroute/internal/config"
	"github.com/example/agriroute/internal/dispatch"
	"github.com/example/agriroute/internal/ingest"
	"github.com/example/agriroute/internal/logging"
	"github.com/example/agriroute/internal/models"
	"github.com/example/agriroute/internal/observability"
	"github.com/example/agriroute/internal/payments"
	"github.com/example/agriroute/internal/pii"
	"github.com/example/agriroute/internal/pricing"
	"github.com/example/agriroute/internal/progress"
	"github.com/example/agriroute/internal/status"
	"github.com/example/agriroute/internal/storage"
	"github.com/example/agriroute/internal/visibility"
	"github.com/example/agriroute/internal/workflow"
)

type Server struct {
	Store    storage.Store
	Progress progress.Store
	Pricing  *pricing.Resolver
	Kafka    *ingest.KafkaProducer
	WSReg    *dispatch.WSRegistry
	Payments *payments.StripeClient

	logger *slog.Logger
	mux    *mux.Router

	holdMu sync.Mutex
	holds  map[string]string // freight id -> payment intent id
}

// NewServer wires a server from explicit dependencies. Kafka and Payments
// may be nil; the corresponding steps are skipped.
func NewServer(st storage.Store, pr progress.Store, kp *ingest.KafkaProducer, pay *payments.StripeClient, logger *slog.Logger) *Server {
	s := &Server{
		Store:    st,
		Progress: pr,
		Pricing:  pricing.NewResolver(),
		Kafka:    kp,
		WSReg:    dispatch.NewWSRegistry(),
		Payments: pay,
		logger:   logger,
		mux:      mux.NewRouter(),
		holds:    make(map[string]string),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// NewServerFromConfig builds the production wiring: Postgres when PG_DSN
// is set (memory otherwise), Redis-backed progress when REDIS_ADDR is
// set, Kafka publishing when brokers are configured.
func NewServerFromConfig(cfg config.ServerConfig) *Server {
	logger := logging.New(cfg.LogLevel)

	var st storage.Store
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			st = ps
		} else {
			logger.Error("postgres unavailable, using memory store", "error", err)
		}
	}
	if st == nil {
		st = storage.NewMemoryStore()
	}

	var pr progress.Store
	if cfg.RedisAddr != "" {
		pr = progress.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.ProgressKey)
	} else {
		pr = progress.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var pay *payments.StripeClient
	if os.Getenv("STRIPE_API_KEY") != "" {
		pay = payments.NewStripeClient()
	}

	return NewServer(st, pr, kp, pay, logger)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/freights", s.handleCreateFreight).Methods("POST")
	s.mux.HandleFunc("/api/v1/freights/{id}/quote", s.handleQuote).Methods("GET")
	s.mux.HandleFunc("/api/v1/freights/{id}/driver-price", s.handleDriverPrice).Methods("GET")
	s.mux.HandleFunc("/api/v1/freights/{id}/deal", s.handleCloseDeal).Methods("POST")
	s.mux.HandleFunc("/api/v1/freights/{id}/assignments", s.handleCreateAssignment).Methods("POST")
	s.mux.HandleFunc("/api/v1/freights/{id}/status", s.handleEffectiveStatus).Methods("GET")
	s.mux.HandleFunc("/api/v1/freights/{id}/transition", s.handleFreightTransition).Methods("POST")
	s.mux.HandleFunc("/api/v1/freights/{id}/actions", s.handleFreightActions).Methods("GET")
	s.mux.HandleFunc("/api/v1/service-requests", s.handleCreateServiceRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/service-requests/{id}", s.handleGetServiceRequest).Methods("GET")
	s.mux.HandleFunc("/api/v1/service-requests/{id}/transition", s.handleServiceRequestTransition).Methods("POST")
	s.mux.HandleFunc("/internal/driver/progress", s.handleDriverProgress).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{profile_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// viewerFrom reads the identity the auth layer put on the request.
// Missing headers produce an empty viewer, which every gate treats as
// the most restrictive case.
func viewerFrom(r *http.Request) models.Viewer {
	return models.Viewer{
		ProfileID: r.Header.Get("X-Profile-ID"),
		Role:      models.Role(r.Header.Get("X-Role")),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleCreateFreight(w http.ResponseWriter, r *http.Request) {
	var f models.Freight
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	viewer := viewerFrom(r)
	if viewer.Role != models.RoleProducer && viewer.Role != models.RoleAdmin {
		http.Error(w, "only producers create freights", 403)
		return
	}
	f.ID = uuid.NewString()
	if f.ProducerID == "" {
		f.ProducerID = viewer.ProfileID
	}
	f.Status = models.StatusOpen
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	if err := s.Store.SaveFreight(&f); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 201, f)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadFreight(w, r)
	if !ok {
		return
	}
	viewer := viewerFrom(r)
	mode := visibility.ResolveMode(viewer, f.ProducerID)

	q := s.Pricing.Resolve(*f, pricing.Opts{UnitOnly: mode == visibility.UnitOnly})
	if !q.OK {
		observability.QuoteFailures.Inc()
		http.Error(w, "pricing unavailable", 422)
		return
	}
	observability.QuotesTotal.WithLabelValues(string(mode)).Inc()
	writeJSON(w, 200, map[string]any{"mode": mode, "quote": q})
}

func (s *Server) handleDriverPrice(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadFreight(w, r)
	if !ok {
		return
	}
	viewer := viewerFrom(r)
	if viewer.Role != models.RoleDriver {
		http.Error(w, "driver surface only", 403)
		return
	}

	var agreed float64
	if a, err := s.Store.GetAssignment(f.ID, viewer.ProfileID); err == nil {
		agreed = a.AgreedPrice
	}
	p := visibility.DriverVisiblePrice(visibility.DriverPriceInput{
		FreightPrice:          f.Price,
		RequiredTrucks:        f.RequiredTrucks,
		AssignmentAgreedPrice: agreed,
	})
	writeJSON(w, 200, map[string]any{
		"display_price":            p.DisplayPrice,
		"display_text":             pricing.FormatBRL(p.DisplayPrice),
		"display_mode":             p.DisplayMode,
		"original_required_trucks": p.OriginalRequiredTrucks,
	})
}

// handleCloseDeal records a re-negotiated price snapshot and drops the
// cached quote so the next read reflects the agreement.
func (s *Server) handleCloseDeal(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadFreight(w, r)
	if !ok {
		return
	}
	viewer := viewerFrom(r)
	if visibility.ResolveMode(viewer, f.ProducerID) != visibility.RequesterFull {
		http.Error(w, "only the requester closes deals", 403)
		return
	}
	var d models.DealSnapshot
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if _, ok := pricing.ParseType(d.AgreedPricingType); !ok || d.AgreedUnitRate <= 0 {
		http.Error(w, "invalid deal snapshot", 422)
		return
	}
	f.Deal = &d
	f.UpdatedAt = time.Now()
	if err := s.Store.SaveFreight(f); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	s.Pricing.Invalidate(f.ID)
	writeJSON(w, 200, f)
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadFreight(w, r)
	if !ok {
		return
	}
	var a models.FreightAssignment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if a.DriverID == "" {
		http.Error(w, "driver_id required", 400)
		return
	}
	a.FreightID = f.ID
	if a.Status == "" {
		a.Status = models.StatusAccepted
	}
	a.UpdatedAt = time.Now()
	if err := s.Store.SaveAssignment(&a); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 201, a)
}

// handleEffectiveStatus reconciles the assignment row with the live trip
// progress for one driver on one freight.
func (s *Server) handleEffectiveStatus(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadFreight(w, r)
	if !ok {
		return
	}
	driverID := r.URL.Query().Get("driver_id")
	if driverID == "" {
		http.Error(w, "driver_id required", 400)
		return
	}

	var assignmentStatus string
	if a, err := s.Store.GetAssignment(f.ID, driverID); err == nil {
		assignmentStatus = a.Status
	}
	tripStatus, err := s.Progress.GetStatus(r.Context(), f.ID, driverID)
	if err != nil {
		s.logger.Warn("progress read failed", "freight_id", f.ID, "driver_id", driverID, "error", err)
	}

	eff := status.Effective(assignmentStatus, tripStatus)
	if tripStatus != "" && assignmentStatus != "" && tripStatus != assignmentStatus {
		s.logger.Info("status divergence",
			"freight_id", f.ID, "driver_id", driverID,
			"assignment", assignmentStatus, "trip_progress", tripStatus, "effective", eff)
	}
	writeJSON(w, 200, map[string]any{
		"effective_status": eff,
		"still_active":     status.StillActive(assignmentStatus, tripStatus),
	})
}

type transitionRequest struct {
	To       string `json:"to"`
	DriverID string `json:"driver_id,omitempty"`
}

func (s *Server) handleFreightTransition(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadFreight(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	viewer := viewerFrom(r)

	if err := workflow.Freight.AssertTransition(f.Status, req.To, viewer.Role); err != nil {
		observability.TransitionsRejected.WithLabelValues(string(workflow.EntityFreight)).Inc()
		var te *workflow.TransitionError
		if errors.As(err, &te) {
			s.logger.Warn("transition rejected", "entity", te.Entity, "from", te.From, "to", te.To, "role", te.Role)
		}
		http.Error(w, err.Error(), 409)
		return
	}

	if err := s.Store.UpdateFreightStatus(f.ID, req.To); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if req.DriverID != "" {
		if err := s.Store.UpdateAssignmentStatus(f.ID, req.DriverID, req.To); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("assignment sync failed", "freight_id", f.ID, "driver_id", req.DriverID, "error", err)
		}
	}
	observability.TransitionsTotal.WithLabelValues(string(workflow.EntityFreight)).Inc()

	s.settlePayments(r, f, req.To)

	if req.To == models.StatusCompleted {
		if err := s.Store.ArchiveFreight(f.ID); err != nil {
			s.logger.Error("archive failed", "freight_id", f.ID, "error", err)
		}
	}

	update := dispatch.StatusUpdate{Entity: string(workflow.EntityFreight), ID: f.ID, Status: req.To}
	_ = s.WSReg.Push(f.ProducerID, update)
	if req.DriverID != "" {
		_ = s.WSReg.Push(req.DriverID, update)
	}

	writeJSON(w, 200, map[string]any{"id": f.ID, "status": req.To})
}

// settlePayments drives the escrow flow off accepted transitions: hold on
// acceptance, capture on completion, release on cancellation.
func (s *Server) settlePayments(r *http.Request, f *models.Freight, to string) {
	if s.Payments == nil {
		return
	}
	switch to {
	case models.StatusAccepted:
		total := f.Price * float64(max(f.RequiredTrucks, 1))
		id, err := s.Payments.HoldBRL(r.Context(), total, f.ProducerID)
		if err != nil {
			s.logger.Error("payment hold failed", "freight_id", f.ID, "error", err)
			return
		}
		s.holdMu.Lock()
		s.holds[f.ID] = id
		s.holdMu.Unlock()
	case models.StatusCompleted:
		if id := s.takeHold(f.ID); id != "" {
			if err := s.Payments.Capture(r.Context(), id); err != nil {
				s.logger.Error("payment capture failed", "freight_id", f.ID, "error", err)
			}
		}
	case models.StatusCancelled:
		if id := s.takeHold(f.ID); id != "" {
			if err := s.Payments.Cancel(r.Context(), id); err != nil {
				s.logger.Error("payment release failed", "freight_id", f.ID, "error", err)
			}
		}
	}
}

func (s *Server) takeHold(freightID string) string {
	s.holdMu.Lock()
	defer s.holdMu.Unlock()
	id := s.holds[freightID]
	delete(s.holds, freightID)
	return id
}

func (s *Server) handleFreightActions(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadFreight(w, r)
	if !ok {
		return
	}
	viewer := viewerFrom(r)
	acts := workflow.Freight.AllowedActions(f.Status, viewer.Role)
	next, _ := workflow.Freight.NextStatus(f.Status)
	writeJSON(w, 200, map[string]any{"status": f.Status, "next_status": next, "actions": acts})
}

func (s *Server) handleCreateServiceRequest(w http.ResponseWriter, r *http.Request) {
	var req models.ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	viewer := viewerFrom(r)
	req.ID = uuid.NewString()
	if req.RequesterID == "" {
		req.RequesterID = viewer.ProfileID
	}
	req.Status = models.StatusOpen
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	if err := s.Store.SaveServiceRequest(&req); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 201, req)
}

// handleGetServiceRequest serves the record with PII masked until the
// request is accepted. The requester and admins always see their own
// record in full.
func (s *Server) handleGetServiceRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := s.Store.GetServiceRequest(id)
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	viewer := viewerFrom(r)
	if viewer.Role == models.RoleAdmin || (viewer.ProfileID != "" && viewer.ProfileID == req.RequesterID) {
		writeJSON(w, 200, req)
		return
	}
	masked := pii.Mask(*req, req.Status)
	if !pii.VisibleForStatus(req.Status) {
		observability.PiiMaskedReads.Inc()
	}
	writeJSON(w, 200, masked)
}

func (s *Server) handleServiceRequestTransition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := s.Store.GetServiceRequest(id)
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	var body transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	viewer := viewerFrom(r)

	if err := workflow.ServiceRequest.AssertTransition(req.Status, body.To, viewer.Role); err != nil {
		observability.TransitionsRejected.WithLabelValues(string(workflow.EntityServiceRequest)).Inc()
		http.Error(w, err.Error(), 409)
		return
	}
	if err := s.Store.UpdateServiceRequestStatus(id, body.To); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	observability.TransitionsTotal.WithLabelValues(string(workflow.EntityServiceRequest)).Inc()

	update := dispatch.StatusUpdate{Entity: string(workflow.EntityServiceRequest), ID: id, Status: body.To}
	_ = s.WSReg.Push(req.RequesterID, update)
	if req.ProviderID != "" {
		_ = s.WSReg.Push(req.ProviderID, update)
	}
	writeJSON(w, 200, map[string]any{"id": id, "status": body.To})
}

// handleDriverProgress ingests a driver's trip-progress report: published
// to Kafka when configured, and written to the live progress store so
// reads are immediately consistent on this node.
func (s *Server) handleDriverProgress(w http.ResponseWriter, r *http.Request) {
	var p models.DriverTripProgress
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if p.FreightID == "" || p.DriverID == "" || p.Status == "" {
		http.Error(w, "freight_id, driver_id and status required", 400)
		return
	}
	if p.ReportedAt.IsZero() {
		p.ReportedAt = time.Now()
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishProgress(p); err != nil {
			s.logger.Warn("progress publish failed", "freight_id", p.FreightID, "error", err)
		}
	}
	if err := s.Progress.Set(r.Context(), p); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.WriteHeader(204)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["profile_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", 400)
		return
	}
	s.WSReg.Add(id, conn)
}

func (s *Server) loadFreight(w http.ResponseWriter, r *http.Request) (*models.Freight, bool) {
	id := mux.Vars(r)["id"]
	f, err := s.Store.GetFreight(id)
	if err != nil {
		s.notFoundOr500(w, err)
		return nil, false
	}
	return f, true
}

func (s *Server) notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", 404)
		return
	}
	http.Error(w, err.Error(), 500)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
