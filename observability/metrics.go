package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// Metrics groups every collector of the chat engine.
// Collectors are registered on the given registerer so tests can use a private registry.
type Metrics struct {
	ActiveParticipants  prometheus.Gauge
	ParticipantsJoined  prometheus.Counter
	ParticipantsEvicted prometheus.Counter
	MessagesPosted      *prometheus.CounterVec
	MessagesEdited      prometheus.Counter
	MessagesDeleted     prometheus.Counter
	SweepFailures       prometheus.Counter
	SweepDuration       prometheus.Histogram
	WorkerRestarts      *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	RateLimited         prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ActiveParticipants: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_participants",
			Help:      "Number of participants currently registered.",
		}),
		ParticipantsJoined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_joined_total",
			Help:      "Participants that joined the room.",
		}),
		ParticipantsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_evicted_total",
			Help:      "Participants removed by the presence sweeper.",
		}),
		MessagesPosted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_posted_total",
			Help:      "Messages appended to the log, by kind.",
		}, []string{"kind"}),
		MessagesEdited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_edited_total",
			Help:      "Messages edited by their sender.",
		}),
		MessagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deleted_total",
			Help:      "Messages deleted by their sender.",
		}),
		SweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Per participant failures during presence sweeps.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one presence sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		WorkerRestarts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_restarts_total",
			Help:      "Supervised worker restarts after a crash.",
		}, []string{"worker"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled by the gateway.",
		}, []string{"method", "route", "code"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}
