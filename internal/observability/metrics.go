package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesBooked    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "rides_booked_total", Help: "Total rides booked"})
	RidesAssigned  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "rides_assigned_total", Help: "Total rides accepted by a driver"})
	RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "rides_completed_total", Help: "Total rides completed"})
	RidesCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "rides_cancelled_total", Help: "Total rides cancelled"})

	// AcceptConflicts counts drivers that lost the accept race.
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "accept_conflicts_total", Help: "Accept attempts that lost the race for a pending ride"})

	MessagesSent    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "messages_sent_total", Help: "Messages persisted"})
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "messages_relayed_total", Help: "Message deliveries pushed to connected sockets"})

	SocketsConnected = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "gotrike", Name: "sockets_connected", Help: "Open websocket connections"})
	UsersOnline      = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "gotrike", Name: "users_online", Help: "Users with at least one announced socket"})

	DirectionsFallbacks = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gotrike", Name: "directions_fallbacks_total", Help: "Route lookups served by the straight-line fallback"})
)
