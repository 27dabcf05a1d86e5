package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DeliveriesTotal counts processed delivery jobs by channel and outcome.
var DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notifyd_deliveries_total",
	Help: "Delivery jobs processed, labelled by channel type and outcome.",
}, []string{"type", "outcome"})

// EnqueuedTotal counts jobs handed to the broker by the producer.
var EnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notifyd_enqueued_total",
	Help: "Delivery jobs published to the queue, labelled by channel type.",
}, []string{"type"})

// RealtimeConnections tracks currently open websocket connections.
var RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "notifyd_realtime_connections",
	Help: "Open realtime connections on this instance.",
})
