package db

import "github.com/uptrace/bun"

const PlatformYouTube = "YouTube"

// Channel is a roster entry. The roster is reference data and is never
// written by the watcher.
type Channel struct {
	bun.BaseModel `bun:"table:channels,alias:channel"`

	Id        int64 `bun:",pk,autoincrement"`
	Name      string
	Platform  string
	Handle    string
	ChannelId string
	URL       string `bun:"url"`
}

// Stream is one stored live-stream sighting, identified by (Platform, StreamId).
type Stream struct {
	bun.BaseModel `bun:"table:streams,alias:stream"`

	Platform     string `bun:",pk"`
	StreamId     string `bun:",pk"`
	Title        string
	ChannelId    string
	ChannelTitle string
	CreatedAt    string
	ScheduledAt  string
	Status       string
	URL          string `bun:"url"`
}

type StreamKey struct {
	Platform string
	StreamId string
}

func (s Stream) Key() StreamKey {
	return StreamKey{Platform: s.Platform, StreamId: s.StreamId}
}

// StreamUpdate carries the columns an update may overwrite. CreatedAt is
// deliberately absent.
type StreamUpdate struct {
	Title        string
	ChannelId    string
	ChannelTitle string
	ScheduledAt  string
	Status       string
	URL          string
}

func (u StreamUpdate) apply(s Stream) Stream {
	s.Title = u.Title
	s.ChannelId = u.ChannelId
	s.ChannelTitle = u.ChannelTitle
	s.ScheduledAt = u.ScheduledAt
	s.Status = u.Status
	s.URL = u.URL
	return s
}
