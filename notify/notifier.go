// Package notify delivers stream status messages to chat endpoints. Delivery
// is best effort: failures are logged and counted, never returned.
package notify

import (
	"context"
	"time"
	"youtube-stream-watcher/config"
	"youtube-stream-watcher/db"
	"youtube-stream-watcher/logging"
	"youtube-stream-watcher/metrics"
	"youtube-stream-watcher/youtube"
)

type Message struct {
	ChannelTitle string
	Title        string
	StreamId     string
	Status       string
	Platform     string
	ScheduledAt  string
}

// StreamURL links to the stream page; for unknown platforms the id is used as is.
func (m Message) StreamURL() string {
	if m.Platform == db.PlatformYouTube {
		return youtube.WatchURL(m.StreamId)
	}
	return m.StreamId
}

func (m Message) Tier() Tier {
	return TierFor(m.Status)
}

// Target is a single delivery endpoint.
type Target interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

type Notifier struct {
	enabled bool
	delay   time.Duration
	targets []Target
	log     *logging.Sink
	metrics *metrics.Metrics
}

// New builds a notifier over targets. When enabled is false no target is
// ever called, whatever its kind.
func New(enabled bool, delay time.Duration, log *logging.Sink, m *metrics.Metrics, targets ...Target) *Notifier {
	return &Notifier{
		enabled: enabled,
		delay:   delay,
		targets: targets,
		log:     log,
		metrics: m,
	}
}

// Notify sends m to every target in order.
func (n *Notifier) Notify(ctx context.Context, m Message) {
	if !n.enabled {
		n.log.Info("notifications disabled", "channel", m.ChannelTitle, "title", m.Title, "stream_id", m.StreamId, "status", m.Status, "platform", m.Platform)
		return
	}
	if len(n.targets) == 0 {
		n.log.Info("notification skipped", "stream_id", m.StreamId, "err", config.ErrConfigMissing)
		return
	}
	if n.delay > 0 {
		timer := time.NewTimer(n.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			n.log.Info("notification interrupted", "stream_id", m.StreamId, "err", ctx.Err())
			return
		case <-timer.C:
		}
	}
	for _, t := range n.targets {
		err := t.Send(ctx, m)
		if err != nil {
			n.log.Info("notification failed", "target", t.Name(), "stream_id", m.StreamId, "err", err)
			n.metrics.Notification(t.Name(), metrics.NotificationFailed)
			continue
		}
		n.log.Info("notification sent", "target", t.Name(), "stream_id", m.StreamId, "status", m.Status, "tier", m.Tier().Name)
		n.metrics.Notification(t.Name(), metrics.NotificationSent)
	}
}
