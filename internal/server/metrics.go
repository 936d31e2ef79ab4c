package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polecart_sessions_active",
		Help: "Number of connected browser sessions",
	})

	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polecart_steps_total",
		Help: "Engine steps taken across all sessions",
	})

	fallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polecart_falls_total",
		Help: "Episodes that ended with the cart or pole out of bounds",
	})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polecart_ws_messages_total",
		Help: "Client websocket messages by type",
	}, []string{"type"})

	mouseDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polecart_mouse_dropped_total",
		Help: "Mouse messages rejected by the per-session rate limit",
	})

	stepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polecart_step_duration_seconds",
		Help:    "Wall time of one policy plus engine step",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
)
