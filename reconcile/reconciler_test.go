package reconcile

import (
	"bytes"
	"context"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"strings"
	"testing"
	"time"
	"youtube-stream-watcher/db"
	"youtube-stream-watcher/logging"
	"youtube-stream-watcher/metrics"
	"youtube-stream-watcher/notify"
	"youtube-stream-watcher/youtube"
)

type countingStore struct {
	*db.Memory
	appends   []db.Stream
	updates   []db.StreamKey
	appendErr error
	listErr   error
}

func (s *countingStore) ListChannels(ctx context.Context) ([]db.Channel, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Memory.ListChannels(ctx)
}

func (s *countingStore) Append(ctx context.Context, st db.Stream) error {
	s.appends = append(s.appends, st)
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Memory.Append(ctx, st)
}

func (s *countingStore) Update(ctx context.Context, key db.StreamKey, u db.StreamUpdate) error {
	s.updates = append(s.updates, key)
	return s.Memory.Update(ctx, key, u)
}

func (s *countingStore) resetCounts() {
	s.appends = nil
	s.updates = nil
}

type fakePlatform struct {
	titles      map[string]string
	videos      map[string][]youtube.Video
	titleCalls  int
	videoCalls  int
	videosError error
}

func (p *fakePlatform) ChannelTitle(_ context.Context, channelId string) (string, error) {
	p.titleCalls++
	title, ok := p.titles[channelId]
	if !ok {
		return "", youtube.ErrNotFound
	}
	return title, nil
}

func (p *fakePlatform) RecentLiveVideos(_ context.Context, channelId string) ([]youtube.Video, error) {
	p.videoCalls++
	if p.videosError != nil {
		return []youtube.Video{}, p.videosError
	}
	return p.videos[channelId], nil
}

type recordingNotifier struct {
	messages []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, m notify.Message) {
	n.messages = append(n.messages, m)
}

func (n *recordingNotifier) reset() {
	n.messages = nil
}

type fixture struct {
	store    *countingStore
	platform *fakePlatform
	notifier *recordingNotifier
	logs     *bytes.Buffer
	metrics  *metrics.Metrics
	r        *Reconciler
}

func newFixture(channels []db.Channel, streams []db.Stream) *fixture {
	f := &fixture{
		store:    &countingStore{Memory: db.NewMemory(channels, streams)},
		platform: &fakePlatform{titles: map[string]string{}, videos: map[string][]youtube.Video{}},
		notifier: &recordingNotifier{},
		logs:     &bytes.Buffer{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	f.r = New(f.store, f.platform, f.notifier, logging.New(f.logs, true), f.metrics)
	return f
}

func (f *fixture) run(t *testing.T) Summary {
	t.Helper()
	f.store.resetCounts()
	f.notifier.reset()
	summary, err := f.r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return summary
}

func (f *fixture) at(ts time.Time) {
	f.r.now = func() time.Time { return ts }
}

func youtubeChannel(id string) db.Channel {
	return db.Channel{Name: id, Platform: db.PlatformYouTube, ChannelId: id, URL: youtube.ChannelURL(id)}
}

func video(id, status string) youtube.Video {
	return youtube.Video{
		Id:                   id,
		Title:                "title " + id,
		ChannelId:            "UCabc",
		ChannelTitle:         "ABC",
		PublishedAt:          "2024-05-01T00:00:00Z",
		LiveBroadcastContent: status,
	}
}

func key(id string) db.StreamKey {
	return db.StreamKey{Platform: db.PlatformYouTube, StreamId: id}
}

func TestUnsupportedPlatformsAreIgnored(t *testing.T) {
	f := newFixture([]db.Channel{
		{Name: "t", Platform: "Twitch", ChannelId: "UCtwitch"},
		{Name: "n", Platform: "niconico", ChannelId: "UCnico"},
	}, nil)
	f.platform.titles["UCtwitch"] = "Twitch channel"
	summary := f.run(t)
	if f.platform.titleCalls != 0 || f.platform.videoCalls != 0 {
		t.Fatalf("platform called %d/%d times", f.platform.titleCalls, f.platform.videoCalls)
	}
	if len(f.notifier.messages) != 0 {
		t.Fatalf("notifier called: %v", f.notifier.messages)
	}
	if summary.Channels != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestOneWritePerVideo(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, []db.Stream{
		{Platform: db.PlatformYouTube, StreamId: "old-same", Status: "live"},
		{Platform: db.PlatformYouTube, StreamId: "old-changed", Status: "upcoming"},
	})
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videos["UCabc"] = []youtube.Video{
		video("fresh", "upcoming"),
		video("old-same", "live"),
		video("old-changed", "live"),
	}
	summary := f.run(t)
	if len(f.store.appends) != 1 || f.store.appends[0].StreamId != "fresh" {
		t.Fatalf("appends = %+v", f.store.appends)
	}
	if len(f.store.updates) != 1 || f.store.updates[0] != key("old-changed") {
		t.Fatalf("updates = %+v", f.store.updates)
	}
	if summary.New != 1 || summary.Updated != 1 || summary.Unchanged != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(f.notifier.messages) != 2 {
		t.Fatalf("notifications = %+v", f.notifier.messages)
	}
	if got := testutil.ToFloat64(f.metrics.Streams.WithLabelValues(metrics.StreamUnchanged)); got != 1 {
		t.Fatalf("unchanged metric = %v", got)
	}
}

func TestSecondRunIsNoOp(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, nil)
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videos["UCabc"] = []youtube.Video{video("v1", "upcoming"), video("v2", "live")}

	f.run(t)
	if len(f.store.appends) != 2 || len(f.notifier.messages) != 2 {
		t.Fatalf("first run: appends = %d, notifications = %d", len(f.store.appends), len(f.notifier.messages))
	}
	summary := f.run(t)
	if len(f.store.appends) != 0 || len(f.store.updates) != 0 || len(f.notifier.messages) != 0 {
		t.Fatalf("second run wrote or notified: %+v %+v %+v", f.store.appends, f.store.updates, f.notifier.messages)
	}
	if summary.Unchanged != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestNewStreamAlwaysNotified(t *testing.T) {
	for _, status := range []string{"", "none", "mystery"} {
		f := newFixture([]db.Channel{youtubeChannel("UCabc")}, nil)
		f.platform.titles["UCabc"] = "ABC"
		f.platform.videos["UCabc"] = []youtube.Video{video("v1", status)}
		f.run(t)
		if len(f.notifier.messages) != 1 {
			t.Fatalf("status %q: notifications = %v", status, f.notifier.messages)
		}
		if got := f.notifier.messages[0].Tier(); got.Name != notify.TierEnded.Name {
			t.Fatalf("status %q: tier = %+v", status, got)
		}
	}
}

func TestTransitionToNoneNotified(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, []db.Stream{
		{Platform: db.PlatformYouTube, StreamId: "v1", Status: "live", CreatedAt: "2024-05-01 09:00:00"},
	})
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videos["UCabc"] = []youtube.Video{video("v1", "none")}
	f.run(t)
	if len(f.store.updates) != 1 || len(f.notifier.messages) != 1 {
		t.Fatalf("updates = %v, notifications = %v", f.store.updates, f.notifier.messages)
	}
	if f.notifier.messages[0].Status != "none" {
		t.Fatalf("message = %+v", f.notifier.messages[0])
	}
}

func TestRegressionAcceptedLikeAnyChange(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, []db.Stream{
		{Platform: db.PlatformYouTube, StreamId: "v1", Status: "live"},
	})
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videos["UCabc"] = []youtube.Video{video("v1", "upcoming")}
	summary := f.run(t)
	if summary.Updated != 1 || len(f.notifier.messages) != 1 {
		t.Fatalf("summary = %+v, notifications = %v", summary, f.notifier.messages)
	}
	stored, _ := f.store.Stream(key("v1"))
	if stored.Status != "upcoming" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestStreamLifecycle(t *testing.T) {
	f := newFixture([]db.Channel{{Platform: db.PlatformYouTube, ChannelId: "UCabc"}}, nil)
	f.platform.titles["UCabc"] = "ABC"

	first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	passes := []struct {
		at     time.Time
		status string
		tier   string
		append bool
	}{
		{first, "upcoming", "scheduled", true},
		{first.Add(time.Hour), "live", "in progress", false},
		{first.Add(2 * time.Hour), "none", "ended or unknown", false},
	}
	for i, p := range passes {
		f.at(p.at)
		f.platform.videos["UCabc"] = []youtube.Video{video("v1", p.status)}
		f.run(t)
		if p.append && (len(f.store.appends) != 1 || len(f.store.updates) != 0) {
			t.Fatalf("pass %d: appends = %v, updates = %v", i+1, f.store.appends, f.store.updates)
		}
		if !p.append && (len(f.store.appends) != 0 || len(f.store.updates) != 1) {
			t.Fatalf("pass %d: appends = %v, updates = %v", i+1, f.store.appends, f.store.updates)
		}
		if len(f.notifier.messages) != 1 || f.notifier.messages[0].Tier().Name != p.tier {
			t.Fatalf("pass %d: notifications = %+v", i+1, f.notifier.messages)
		}
		stored, err := f.store.Stream(key("v1"))
		if err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
		if stored.Status != p.status {
			t.Fatalf("pass %d: status = %q", i+1, stored.Status)
		}
		if stored.CreatedAt != "2024-05-01 09:00:00" {
			t.Fatalf("pass %d: createdAt = %q", i+1, stored.CreatedAt)
		}
	}
	streams, _ := f.store.SnapshotStreams(context.Background())
	if len(streams) != 1 {
		t.Fatalf("streams = %+v", streams)
	}
}

func TestUnresolvedChannelIsSkipped(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCmissing")}, nil)
	f.platform.videos["UCmissing"] = []youtube.Video{video("v1", "live")}
	summary := f.run(t)
	if f.platform.videoCalls != 0 {
		t.Fatalf("videos fetched for an unresolved channel")
	}
	if len(f.store.appends) != 0 || len(f.store.updates) != 0 || len(f.notifier.messages) != 0 {
		t.Fatalf("unexpected side effects")
	}
	if n := strings.Count(f.logs.String(), "level=ERROR"); n != 1 {
		t.Fatalf("error lines = %d, logs:\n%s", n, f.logs.String())
	}
	if summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestSkippedChannelDoesNotStopPass(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCmissing"), youtubeChannel("UCabc")}, nil)
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videos["UCabc"] = []youtube.Video{video("v1", "live")}
	summary := f.run(t)
	if summary.Channels != 2 || summary.Skipped != 1 || summary.New != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestVideoFetchFailureTreatedAsEmpty(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, nil)
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videosError = youtube.ErrTransport
	summary := f.run(t)
	if len(f.store.appends) != 0 || len(f.notifier.messages) != 0 {
		t.Fatalf("unexpected side effects")
	}
	if summary.Channels != 1 || summary.Skipped != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestWriteFailureSkipsNotification(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, nil)
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videos["UCabc"] = []youtube.Video{video("v1", "live"), video("v2", "upcoming")}
	f.store.appendErr = errors.Wrap(db.ErrStoreWrite, "sheet unreachable")
	summary := f.run(t)
	if len(f.store.appends) != 2 {
		t.Fatalf("every video should still be attempted once: %v", f.store.appends)
	}
	if len(f.notifier.messages) != 0 {
		t.Fatalf("notified without a stored record: %v", f.notifier.messages)
	}
	if summary.WriteFailed != 2 || summary.New != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestCandidateFallsBackToChannel(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, nil)
	f.platform.titles["UCabc"] = "Resolved ABC"
	f.at(time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC))
	f.platform.videos["UCabc"] = []youtube.Video{{Id: "v1", Title: "t", PublishedAt: "2024-05-01T12:00:00Z", LiveBroadcastContent: "upcoming"}}
	f.run(t)
	stored, err := f.store.Stream(key("v1"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	want := db.Stream{
		Platform:     db.PlatformYouTube,
		StreamId:     "v1",
		Title:        "t",
		ChannelId:    "UCabc",
		ChannelTitle: "Resolved ABC",
		CreatedAt:    "2024-05-02 00:00:00",
		ScheduledAt:  "2024-05-01 21:00:00",
		Status:       "upcoming",
		URL:          "https://www.youtube.com/watch?v=v1",
	}
	if stored != want {
		t.Fatalf("stored = %+v\nwant   %+v", stored, want)
	}
	m := f.notifier.messages[0]
	if m.ChannelTitle != "Resolved ABC" || m.ScheduledAt != want.ScheduledAt || m.Platform != db.PlatformYouTube {
		t.Fatalf("message = %+v", m)
	}
}

func TestDuplicateWithinPassAppendsTwice(t *testing.T) {
	f := newFixture([]db.Channel{youtubeChannel("UCabc")}, nil)
	f.platform.titles["UCabc"] = "ABC"
	f.platform.videos["UCabc"] = []youtube.Video{video("v1", "live"), video("v1", "live")}
	f.run(t)
	if len(f.store.appends) != 2 {
		t.Fatalf("snapshot is read once per pass; appends = %v", f.store.appends)
	}
}

func TestRosterFailureAbortsPass(t *testing.T) {
	f := newFixture(nil, nil)
	f.store.listErr = errors.New("sheet unreachable")
	_, err := f.r.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestClassificationString(t *testing.T) {
	if ClassNew.String() != "new" || ClassUpdated.String() != "updated" || ClassUnchanged.String() != "unchanged" {
		t.Fatalf("unexpected names")
	}
}
