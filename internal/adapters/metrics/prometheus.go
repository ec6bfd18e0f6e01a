package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mikey/inbox-digest/internal/core"
)

// Cycle outcomes
const (
	OutcomeSent        = "sent"
	OutcomeHeartbeat   = "heartbeat"
	OutcomeQuiet       = "quiet"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeSendFailed  = "send_failed"
)

// Recorder exports cycle reports as prometheus metrics
type Recorder struct {
	cycles        *prometheus.CounterVec
	items         *prometheus.CounterVec
	notifications prometheus.Counter
	failures      prometheus.Counter
	duration      prometheus.Histogram
}

// NewRecorder registers the digest metrics on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inbox_digest_cycles_total",
			Help: "Notification cycles by outcome",
		}, []string{"outcome"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inbox_digest_items_total",
			Help: "Classified groups by bucket",
		}, []string{"bucket"}),
		notifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_notifications_total",
			Help: "Items included in delivered digests",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_delivery_failures_total",
			Help: "Cycles whose digest could not be delivered",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_digest_cycle_duration_seconds",
			Help:    "Wall time of a notification cycle",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
}

// ObserveCycle implements core.Metrics
func (r *Recorder) ObserveCycle(report core.CycleReport) {
	r.cycles.WithLabelValues(Outcome(report)).Inc()
	for bucket, n := range report.Buckets {
		r.items.WithLabelValues(string(bucket)).Add(float64(n))
	}
	if report.Sent {
		r.notifications.Add(float64(report.Notified))
	}
	if report.SendError != nil {
		r.failures.Inc()
	}
	r.duration.Observe(report.Duration.Seconds())
}

// Outcome names the result of a cycle
func Outcome(report core.CycleReport) string {
	switch {
	case report.FetchError != nil:
		return OutcomeFetchFailed
	case report.SendError != nil:
		return OutcomeSendFailed
	case report.Heartbeat:
		return OutcomeHeartbeat
	case report.Sent:
		return OutcomeSent
	default:
		return OutcomeQuiet
	}
}
