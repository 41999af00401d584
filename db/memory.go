package db

import (
	"context"
	"github.com/pkg/errors"
	"sync"
)

// Memory keeps both tables in process. It backs local runs and tests.
type Memory struct {
	mu       sync.Mutex
	channels []Channel
	streams  []Stream
}

func NewMemory(channels []Channel, streams []Stream) *Memory {
	return &Memory{
		channels: append([]Channel(nil), channels...),
		streams:  append([]Stream(nil), streams...),
	}
}

// SampleRoster is the roster the memory backend starts with when nothing
// else is configured.
func SampleRoster() []Channel {
	return []Channel{
		{
			Name:      "Streamer A",
			Platform:  PlatformYouTube,
			Handle:    "@example1",
			ChannelId: "UCxxxxxxxxxxxxxxxxxxxxxx",
			URL:       "https://www.youtube.com/channel/UCxxxxxxxxxxxxxxxxxxxxxx",
		},
		{
			Name:      "Streamer B",
			Platform:  PlatformYouTube,
			Handle:    "@example2",
			ChannelId: "UCyyyyyyyyyyyyyyyyyyyyyy",
			URL:       "https://www.youtube.com/channel/UCyyyyyyyyyyyyyyyyyyyyyy",
		},
	}
}

func (m *Memory) ListChannels(context.Context) ([]Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Channel{}, m.channels...), nil
}

func (m *Memory) SnapshotStreams(context.Context) ([]Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Stream{}, m.streams...), nil
}

func (m *Memory) Append(_ context.Context, s Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, s)
	return nil
}

func (m *Memory) Update(_ context.Context, key StreamKey, u StreamUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.streams {
		if s.Key() == key {
			m.streams[i] = u.apply(s)
			return nil
		}
	}
	return wrapWrite(ErrNotFound, "cannot update stream %v/%v", key.Platform, key.StreamId)
}

// Stream returns the stored record for key.
func (m *Memory) Stream(key StreamKey) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		if s.Key() == key {
			return s, nil
		}
	}
	return Stream{}, errors.Wrapf(ErrNotFound, "stream %v/%v", key.Platform, key.StreamId)
}
