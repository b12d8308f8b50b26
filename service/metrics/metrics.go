package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName labels metrics pushed to a Pushgateway.
const JobName = "solwallet"

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Provisioning Metrics
	artifactsWrittenTotal *prometheus.CounterVec
	balanceChecksTotal    *prometheus.CounterVec
	transfersTotal        *prometheus.CounterVec
	transferAmountTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// Provisioning Metrics
		artifactsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solwallet_artifacts_written_total",
				Help: "Total number of keypair artifacts written by format",
			},
			[]string{"format"},
		),
		balanceChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solwallet_balance_checks_total",
				Help: "Total number of funding source balance checks by asset and result",
			},
			[]string{"asset", "result"},
		),
		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solwallet_transfers_total",
				Help: "Total number of funding transfers submitted by asset and status",
			},
			[]string{"asset", "status"},
		),
		transferAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solwallet_transfer_amount_total",
				Help: "Sum of submitted transfer amounts in the smallest denomination",
			},
			[]string{"asset"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records an RPC call with its status and duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// Provisioning metric helpers

// RecordArtifactWritten records one artifact file written.
func (m *Metrics) RecordArtifactWritten(format string) {
	m.artifactsWrittenTotal.WithLabelValues(format).Inc()
}

// RecordBalanceCheck records a balance check; result is "sufficient",
// "insufficient" or "error".
func (m *Metrics) RecordBalanceCheck(asset, result string) {
	m.balanceChecksTotal.WithLabelValues(asset, result).Inc()
}

// RecordTransfer records a transfer submission.
func (m *Metrics) RecordTransfer(asset string, amount uint64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.transfersTotal.WithLabelValues(asset, status).Inc()
	if err == nil {
		m.transferAmountTotal.WithLabelValues(asset).Add(float64(amount))
	}
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Push sends everything gathered from g to a Prometheus Pushgateway.
// A one-shot CLI has no scrape window, so this is how its metrics leave
// the process.
func Push(ctx context.Context, gatewayURL string, g prometheus.Gatherer) error {
	if err := push.New(gatewayURL, JobName).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
