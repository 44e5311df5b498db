package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "agriroute", Name: "quotes_total", Help: "Freight quotes served, by visibility mode"},
		[]string{"mode"},
	)
	QuoteFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "agriroute", Name: "quote_failures_total", Help: "Quotes that failed pricing normalization"})

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "agriroute", Name: "transitions_total", Help: "Workflow transitions applied, by entity"},
		[]string{"entity"},
	)
	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "agriroute", Name: "transitions_rejected_total", Help: "Workflow transitions refused by the guards, by entity"},
		[]string{"entity"},
	)

	PiiMaskedReads = promauto.NewCounter(prometheus.CounterOpts{Namespace: "agriroute", Name: "pii_masked_reads_total", Help: "Service-request reads served with PII masked"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "agriroute", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agriroute",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
