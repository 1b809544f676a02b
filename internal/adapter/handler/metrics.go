package handler

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdesk_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockdesk_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"route"})

	transitionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdesk_request_transitions_total",
		Help: "Accept and decline attempts by outcome",
	}, []string{"action", "outcome"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdesk_events_published_total",
		Help: "Domain events handed to the publisher by type and result",
	}, []string{"type", "result"})
)

func observeRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveEvent counts a publish attempt. It matches the dispatcher's
// OnPublished hook.
func ObserveEvent(event domain.Event, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublished.WithLabelValues(string(event.Type), result).Inc()
}
