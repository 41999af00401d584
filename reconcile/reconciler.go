// Package reconcile runs the stream reconciliation pass: for each roster
// channel it fetches recent videos, classifies every video against a
// snapshot of stored streams as new, updated or unchanged, persists the
// change and notifies.
//
// A pass is strictly sequential. The snapshot is read once at the start and
// never refreshed, so writes made during a pass are invisible to its own
// lookups.
package reconcile

import (
	"context"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"time"
	"youtube-stream-watcher/db"
	"youtube-stream-watcher/logging"
	"youtube-stream-watcher/metrics"
	"youtube-stream-watcher/notify"
	"youtube-stream-watcher/timezone"
	"youtube-stream-watcher/youtube"
)

type Store interface {
	ListChannels(ctx context.Context) ([]db.Channel, error)
	SnapshotStreams(ctx context.Context) ([]db.Stream, error)
	Append(ctx context.Context, s db.Stream) error
	Update(ctx context.Context, key db.StreamKey, u db.StreamUpdate) error
}

type Platform interface {
	ChannelTitle(ctx context.Context, channelId string) (string, error)
	RecentLiveVideos(ctx context.Context, channelId string) ([]youtube.Video, error)
}

type Notifier interface {
	Notify(ctx context.Context, m notify.Message)
}

type Classification int

const (
	ClassNew Classification = iota
	ClassUpdated
	ClassUnchanged
)

func (c Classification) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassUpdated:
		return "updated"
	case ClassUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Summary counts what one pass did.
type Summary struct {
	PassId      string `json:"passId"`
	Channels    int    `json:"channels"`
	Skipped     int    `json:"skipped"`
	New         int    `json:"new"`
	Updated     int    `json:"updated"`
	Unchanged   int    `json:"unchanged"`
	WriteFailed int    `json:"writeFailed"`
}

type Reconciler struct {
	store    Store
	platform Platform
	notifier Notifier
	log      *logging.Sink
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(store Store, platform Platform, notifier Notifier, log *logging.Sink, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:    store,
		platform: platform,
		notifier: notifier,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Run executes one pass. It fails only when the roster or the stream
// snapshot cannot be read; everything after that is isolated per channel
// and per video.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	summary := Summary{PassId: uuid.NewString()}
	log := r.log.With("pass", summary.PassId)
	log.Info("stream check started")

	channels, err := r.store.ListChannels(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "cannot read roster")
	}
	snapshot, err := r.store.SnapshotStreams(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "cannot read stored streams")
	}
	index := make(map[db.StreamKey]db.Stream, len(snapshot))
	for _, s := range snapshot {
		if _, ok := index[s.Key()]; !ok {
			index[s.Key()] = s
		}
	}
	log.Info("roster loaded", "channels", len(channels), "streams", len(snapshot))

	for _, channel := range channels {
		if channel.Platform != db.PlatformYouTube {
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Info("stream check interrupted", "err", err)
			break
		}
		summary.Channels++
		r.channel(ctx, log, channel, index, &summary)
	}

	r.metrics.PassCompleted()
	log.Info("stream check finished",
		"channels", summary.Channels,
		"skipped", summary.Skipped,
		"new", summary.New,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"write_failed", summary.WriteFailed,
	)
	return summary, nil
}

func (r *Reconciler) channel(ctx context.Context, log *logging.Sink, channel db.Channel, index map[db.StreamKey]db.Stream, summary *Summary) {
	log = log.With("channel_id", channel.ChannelId)
	log.Debug("checking channel", "name", channel.Name)
	title, err := r.platform.ChannelTitle(ctx, channel.ChannelId)
	if title == "" {
		log.Error("cannot resolve channel title, skipping channel", "err", err)
		summary.Skipped++
		r.metrics.ChannelSkipped()
		return
	}
	log.Info("channel resolved", "title", title)

	videos, err := r.platform.RecentLiveVideos(ctx, channel.ChannelId)
	if err != nil {
		log.Info("no videos this pass", "err", err)
	}
	log.Info("recent videos fetched", "count", len(videos))
	for _, video := range videos {
		candidate := r.candidate(channel, title, video)
		class, err := r.reconcile(ctx, log, candidate, index)
		if err != nil {
			summary.WriteFailed++
		}
		switch class {
		case ClassNew:
			summary.New++
		case ClassUpdated:
			summary.Updated++
		case ClassUnchanged:
			summary.Unchanged++
		}
	}
}

// candidate builds the record a video would be stored as. Blank channel
// fields on the video fall back to the roster channel.
func (r *Reconciler) candidate(channel db.Channel, channelTitle string, video youtube.Video) db.Stream {
	channelId := video.ChannelId
	if channelId == "" {
		channelId = channel.ChannelId
	}
	if video.ChannelTitle != "" {
		channelTitle = video.ChannelTitle
	}
	return db.Stream{
		Platform:     db.PlatformYouTube,
		StreamId:     video.Id,
		Title:        video.Title,
		ChannelId:    channelId,
		ChannelTitle: channelTitle,
		CreatedAt:    timezone.Format(r.now()),
		ScheduledAt:  timezone.FormatRFC3339(video.PublishedAt),
		Status:       video.LiveBroadcastContent,
		URL:          video.URL(),
	}
}

// reconcile performs at most one write and, when the stream is new or its
// status changed, exactly one notification. A failed write suppresses the
// notification but keeps the classification; the write error is returned.
func (r *Reconciler) reconcile(ctx context.Context, log *logging.Sink, candidate db.Stream, index map[db.StreamKey]db.Stream) (Classification, error) {
	log = log.With("stream_id", candidate.StreamId)
	existing, found := index[candidate.Key()]
	if !found {
		err := r.store.Append(ctx, candidate)
		if err != nil {
			log.Error("cannot add stream", "err", err)
			r.metrics.Stream(metrics.StreamWriteFailed)
			return ClassNew, err
		}
		log.Info("stream added", "status", candidate.Status)
		r.metrics.Stream(metrics.StreamNew)
		r.notify(ctx, candidate)
		return ClassNew, nil
	}
	if existing.Status == candidate.Status {
		log.Info("stream unchanged", "status", candidate.Status)
		r.metrics.Stream(metrics.StreamUnchanged)
		return ClassUnchanged, nil
	}
	err := r.store.Update(ctx, candidate.Key(), db.StreamUpdate{
		Title:        candidate.Title,
		ChannelId:    candidate.ChannelId,
		ChannelTitle: candidate.ChannelTitle,
		ScheduledAt:  candidate.ScheduledAt,
		Status:       candidate.Status,
		URL:          candidate.URL,
	})
	if err != nil {
		log.Error("cannot update stream", "err", err)
		r.metrics.Stream(metrics.StreamWriteFailed)
		return ClassUpdated, err
	}
	log.Info("stream status changed", "from", existing.Status, "to", candidate.Status)
	r.metrics.Stream(metrics.StreamUpdated)
	r.notify(ctx, candidate)
	return ClassUpdated, nil
}

func (r *Reconciler) notify(ctx context.Context, s db.Stream) {
	r.notifier.Notify(ctx, notify.Message{
		ChannelTitle: s.ChannelTitle,
		Title:        s.Title,
		StreamId:     s.StreamId,
		Status:       s.Status,
		Platform:     s.Platform,
		ScheduledAt:  s.ScheduledAt,
	})
}
