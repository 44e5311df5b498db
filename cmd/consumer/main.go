// The trip-progress consumer is the asynchronous sync process behind the
// effective-status precedence rule: it drains driver progress events from
// Kafka into the Redis live store and mirrors terminal steps onto the
// assignment rows in Postgres. It can lag or fail, which is exactly why
// reads treat trip progress as authoritative over the assignment row.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/example/agriroute/internal/config"
	"github.com/example/agriroute/internal/models"
	"github.com/example/agriroute/internal/progress"
	agristatus "github.com/example/agriroute/internal/status"
	"github.com/example/agriroute/internal/storage"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_progress_consumed_total",
		Help: "Total trip-progress messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_progress_invalid_total",
		Help: "Total invalid messages received",
	})
	progressUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_progress_updates_total",
		Help: "Total successful live-store updates",
	})
	progressErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_progress_errors_total",
		Help: "Total live-store errors",
	})
	assignmentSyncs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_assignment_syncs_total",
		Help: "Total assignment rows synced from progress events",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, progressUpdates, progressErrors, assignmentSyncs)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	live := progress.NewRedisStore(cfg.RedisAddr, "", cfg.ProgressKey)

	var store storage.Store
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			log.Printf("postgres unavailable, skipping assignment sync: %v", err)
		}
	}

	// metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := live.Ping(r.Context()); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		log.Printf("metrics/health listening on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = live.Close()
	}()

	log.Printf("consumer listening topic=%s brokers=%v group=%s", cfg.KafkaTopic, cfg.KafkaBrokers, cfg.KafkaGroup)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down consumer")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		var p models.DriverTripProgress
		if err := json.Unmarshal(m.Value, &p); err != nil || p.FreightID == "" || p.DriverID == "" {
			msgsInvalid.Inc()
			log.Printf("invalid message: %v", err)
			continue
		}

		if err := updateProgressWithRetry(ctx, live, p, cfg.RedisAttempts, cfg.RedisBackoff); err != nil {
			progressErrors.Inc()
			log.Printf("live-store update failed for freight=%s driver=%s: %v", p.FreightID, p.DriverID, err)
			continue
		}
		progressUpdates.Inc()

		syncAssignment(ctx, store, p)
	}
}

// updateProgressWithRetry writes to the live store with bounded
// retry/backoff. Safe to re-run: the write is idempotent per key.
func updateProgressWithRetry(ctx context.Context, store progress.Store, p models.DriverTripProgress, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = store.Set(ctx, p); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}

// syncAssignment mirrors progress onto the assignment row so offline
// reads stay roughly current. Terminal steps matter most; a missing row
// is not an error (the assignment may not exist yet).
func syncAssignment(ctx context.Context, store storage.Store, p models.DriverTripProgress) {
	if store == nil || p.Status == "" {
		return
	}
	if !agristatus.IsTerminal(p.Status) && p.Status != models.StatusLoading && p.Status != models.StatusInTransit {
		return
	}
	if err := store.UpdateAssignmentStatus(p.FreightID, p.DriverID, p.Status); err != nil {
		if err != storage.ErrNotFound {
			log.Printf("assignment sync failed for freight=%s driver=%s: %v", p.FreightID, p.DriverID, err)
		}
		return
	}
	assignmentSyncs.Inc()
}
