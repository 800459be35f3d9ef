package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "secretlease",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secretlease",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "secretlease",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	signupDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secretlease",
			Subsystem: "workflow",
			Name:      "signup_decisions_total",
			Help:      "Total number of admin signup decisions.",
		},
		[]string{"decision"},
	)

	transactionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secretlease",
			Subsystem: "workflow",
			Name:      "transaction_decisions_total",
			Help:      "Total number of admin transaction decisions.",
		},
		[]string{"decision"},
	)

	revenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "secretlease",
			Subsystem: "workflow",
			Name:      "revenue_usd_total",
			Help:      "Sum of completed transaction amounts in USD.",
		},
	)

	registrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "secretlease",
			Subsystem: "accounts",
			Name:      "registrations_total",
			Help:      "Total number of successful registrations.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		signupDecisions,
		transactionDecisions,
		revenueTotal,
		registrations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordRegistration counts a successful signup.
func RecordRegistration() {
	registrations.Inc()
}

// RecordSignupDecision counts an admin approve/reject of a pending signup.
func RecordSignupDecision(approved bool) {
	signupDecisions.WithLabelValues(decisionLabel(approved)).Inc()
}

// RecordTransactionDecision counts an admin transaction resolution and, on
// approval, adds the amount to the revenue counter.
func RecordTransactionDecision(approved bool, amount float64) {
	transactionDecisions.WithLabelValues(decisionLabel(approved)).Inc()
	if approved && amount > 0 {
		revenueTotal.Add(amount)
	}
}

func decisionLabel(approved bool) string {
	if approved {
		return "approved"
	}
	return "rejected"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource ids so label cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "listings":
		if len(parts) > 1 {
			return "/listings/:id"
		}
		return "/listings"
	case "transactions":
		if len(parts) > 2 {
			return "/transactions/:id/" + parts[2]
		}
		if len(parts) > 1 {
			return "/transactions/:id"
		}
		return "/transactions"
	case "users":
		if len(parts) > 2 && parts[1] == "favorites" {
			return "/users/favorites/:id"
		}
		return "/" + strings.Join(parts, "/")
	case "admin":
		if len(parts) > 2 {
			return "/admin/" + parts[1] + "/:id"
		}
		return "/" + strings.Join(parts, "/")
	default:
		return "/" + parts[0]
	}
}
