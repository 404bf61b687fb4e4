package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Channel metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlink_messages_sent_total",
			Help: "Total messages published on the channel",
		},
	)

	MessagesConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlink_messages_confirmed_total",
			Help: "Total server-confirmed messages received",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlink_events_dropped_total",
			Help: "Total inbound events dropped",
		},
		[]string{"reason"}, // "room_mismatch", "parse_error", "unknown_type"
	)

	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlink_reconnects_total",
			Help: "Total successful channel reconnections",
		},
	)

	RoomSwitches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlink_room_switches_total",
			Help: "Total active room changes",
		},
	)

	ReadReceiptsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlink_read_receipts_sent_total",
			Help: "Total read receipts published",
		},
	)

	// Badge metrics
	UnreadBadge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatlink_unread_badge",
			Help: "Current aggregate unread count",
		},
	)

	BadgeRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlink_badge_refreshes_total",
			Help: "Total badge refresh attempts",
		},
		[]string{"result"}, // "ok", "error", "stale"
	)

	// Archive metrics
	ArchivedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlink_archived_messages_total",
			Help: "Total messages flushed to the local transcript archive",
		},
	)
)
