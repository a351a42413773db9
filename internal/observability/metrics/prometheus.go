// Package metrics provides Prometheus metrics for the scheduling core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	BookingsCreated   prometheus.Counter
	BookingConflicts  *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	ChatMessagesSent  prometheus.Counter
	EventsPublished   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	StreamSubscribers prometheus.Gauge
	BookingDuration   prometheus.Histogram
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		BookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total appointments booked",
		}),
		BookingConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Bookings rejected for overlapping an existing appointment",
		}, []string{"party"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_transitions_total",
			Help: "Successful appointment status transitions",
		}, []string{"to"}),
		ChatMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total chat messages appended",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published on the bus",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Events dropped for slow stream subscribers",
		}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stream_subscribers",
			Help: "Currently connected event stream subscribers",
		}),
		BookingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booking_duration_seconds",
			Help:    "Booking critical section duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}

	prometheus.MustRegister(
		m.BookingsCreated,
		m.BookingConflicts,
		m.Transitions,
		m.ChatMessagesSent,
		m.EventsPublished,
		m.EventsDropped,
		m.StreamSubscribers,
		m.BookingDuration,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
