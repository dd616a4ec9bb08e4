package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SuccessfulRequests *prometheus.CounterVec
	BadRequests        *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Registrations      prometheus.Counter
	FriendRequests     *prometheus.CounterVec
	PostsCreated       prometheus.Counter
	MessagesSent       prometheus.Counter

	registry *prometheus.Registry
}

// InitMetrics creates the collectors on a fresh registry together with
// the Go runtime and process collectors
func InitMetrics() *Metrics {
	m := &Metrics{
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_request",
				Help: "Total number of successful (2xx/3xx) HTTP requests",
			},
			[]string{"path"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unsuccessful_request",
				Help: "Total number of unsuccessful (4xx/5xx) HTTP requests",
			},
			[]string{"path"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "successful_registrations",
			Help: "Total number of accounts registered",
		}),
		FriendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "friend_requests",
				Help: "Total number of friend request transitions",
			},
			[]string{"action"},
		),
		PostsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "successful_posts",
			Help: "Total number of posts created",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "successful_message",
			Help: "Total number of successfully sent messages",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.SuccessfulRequests,
		m.BadRequests,
		m.RequestDuration,
		m.Registrations,
		m.FriendRequests,
		m.PostsCreated,
		m.MessagesSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts every routed request by its route template so that
// path ids do not explode the label space
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			m.RequestDuration.WithLabelValues(routeTemplate(r), r.Method).Observe(v)
		}))
		rec := record(w)
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()

		if rec.status < http.StatusBadRequest {
			m.SuccessfulRequests.WithLabelValues(routeTemplate(r)).Inc()
		} else {
			m.BadRequests.WithLabelValues(routeTemplate(r)).Inc()
		}
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
