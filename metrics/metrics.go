// Package metrics counts passes, stream classifications and notification
// deliveries. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StreamNew         = "new"
	StreamUpdated     = "updated"
	StreamUnchanged   = "unchanged"
	StreamWriteFailed = "write_failed"

	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

type Metrics struct {
	Passes          prometheus.Counter
	ChannelsSkipped prometheus.Counter
	Streams         *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounter(prometheus.CounterOpts{
			Name: "stream_watcher_passes_total",
			Help: "Number of completed reconciliation passes",
		}),
		ChannelsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "stream_watcher_channels_skipped_total",
			Help: "Channels skipped because their title could not be resolved",
		}),
		Streams: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_watcher_streams_total",
			Help: "Streams seen per pass by classification",
		}, []string{"result"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_watcher_notifications_total",
			Help: "Notification deliveries by target and result",
		}, []string{"target", "result"}),
	}
}

func (m *Metrics) PassCompleted() {
	if m == nil {
		return
	}
	m.Passes.Inc()
}

func (m *Metrics) ChannelSkipped() {
	if m == nil {
		return
	}
	m.ChannelsSkipped.Inc()
}

func (m *Metrics) Stream(result string) {
	if m == nil {
		return
	}
	m.Streams.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(target, result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(target, result).Inc()
}
