// Package metrics holds the Prometheus collectors of the library service.
//
// Collectors are package globals registered once by InitMetrics on the
// default registry and exposed through promhttp at the configured path.
// Naming: counters end in _total, histograms in their unit, labels are
// kept low cardinality (never a user or book id).
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

var (
	initOnce sync.Once

	// HTTP

	// HTTPRequestsTotal is labelled by method, route template and status.
	HTTPRequestsTotal *prometheus.CounterVec

	HTTPRequestDuration *prometheus.HistogramVec

	HTTPRequestsInProgress prometheus.Gauge

	// reservations

	// ReservationOpsTotal counts engine calls by op (reserve, cancel,
	// approve_pickup, return, auto_assign) and outcome (success, not_found,
	// permission_denied, invalid_transition, terminal_state,
	// insufficient_stock, empty_queue, error).
	ReservationOpsTotal *prometheus.CounterVec

	// ReservationOpDuration includes lock wait and the transaction.
	ReservationOpDuration *prometheus.HistogramVec

	// PromotionsTotal counts queued reservations moved to Assigned.
	PromotionsTotal prometheus.Counter

	// BookLockWait is the time spent acquiring the per-book lock.
	BookLockWait prometheus.Histogram

	// circuit breaker

	// CircuitBreakerState is 0 closed, 1 open, 2 half-open.
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests is labelled by name and result
	// (success, failure, rejected).
	CircuitBreakerRequests *prometheus.CounterVec

	// messaging

	MessagesPublishedTotal *prometheus.CounterVec

	// MessagesConsumedTotal is labelled by queue and result (success, failure).
	MessagesConsumedTotal *prometheus.CounterVec

	MessageProcessingDuration prometheus.Histogram
)

// InitMetrics registers every collector. Calling it again is a no-op.
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_progress",
			Help:      "HTTP requests currently being served.",
		},
	)

	ReservationOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_operations_total",
			Help:      "Reservation engine calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	ReservationOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_operation_duration_seconds",
			Help:      "Reservation engine latency including lock wait.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	PromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_promotions_total",
			Help:      "Queued reservations promoted to assigned.",
		},
	)

	BookLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "book_lock_wait_seconds",
			Help:      "Time spent waiting for the per-book lock.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Calls through a circuit breaker by result.",
		},
		[]string{"name", "result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Messages published to the broker.",
		},
		[]string{"exchange", "routing_key"},
	)

	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Messages consumed from the broker.",
		},
		[]string{"queue", "result"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_processing_duration_seconds",
			Help:      "Consumer handler latency.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)
}

// ObserveHTTPRequest records one served request. path is the route template.
func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	InitMetrics()
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// TrackInFlight increments the in-progress gauge and returns its undo.
func TrackInFlight() func() {
	InitMetrics()
	HTTPRequestsInProgress.Inc()
	return HTTPRequestsInProgress.Dec
}

// ObserveReservationOp records one engine call.
func ObserveReservationOp(op, outcome string, elapsed time.Duration) {
	InitMetrics()
	ReservationOpsTotal.WithLabelValues(op, outcome).Inc()
	ReservationOpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncPromotions counts one queue promotion.
func IncPromotions() {
	InitMetrics()
	PromotionsTotal.Inc()
}

// ObserveLockWait records how long a book lock took to acquire.
func ObserveLockWait(elapsed time.Duration) {
	InitMetrics()
	BookLockWait.Observe(elapsed.Seconds())
}

// SetBreakerState publishes a breaker state transition.
func SetBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncBreakerRequest counts one call through a breaker.
func IncBreakerRequest(name, result string) {
	InitMetrics()
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// IncPublished counts one published message.
func IncPublished(exchange, routingKey string) {
	InitMetrics()
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey).Inc()
}

// ObserveConsumed records one handled delivery.
func ObserveConsumed(queue, result string, elapsed time.Duration) {
	InitMetrics()
	MessagesConsumedTotal.WithLabelValues(queue, result).Inc()
	MessageProcessingDuration.Observe(elapsed.Seconds())
}
