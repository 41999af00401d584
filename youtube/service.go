package youtube

import (
	"context"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytApi "google.golang.org/api/youtube/v3"
	"strings"
	"time"
	"youtube-stream-watcher/logging"
)

var (
	ErrInvalidChannelID = errors.New("channel id is not a UC channel id")
	ErrNotFound         = errors.New("no data returned")
	ErrTransport        = errors.New("youtube api call failed")
)

// Service talks to the YouTube Data API. Every outgoing call is preceded by a
// fixed delay to stay well within quota; calls are never retried.
type Service struct {
	yt    *ytApi.Service
	delay time.Duration
	log   *logging.Sink
	now   func() time.Time
}

// NewService authenticates with apiKey, sent as the key query parameter.
// Extra options are appended, which lets tests point at a local endpoint.
func NewService(ctx context.Context, apiKey string, delay time.Duration, log *logging.Sink, opts ...option.ClientOption) (*Service, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := ytApi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create youtube service")
	}
	return &Service{yt: service, delay: delay, log: log, now: time.Now}, nil
}

// ChannelTitle returns the display name of channelId. Any failure is logged
// and yields an empty title together with the reason.
func (s *Service) ChannelTitle(ctx context.Context, channelId string) (string, error) {
	if !strings.HasPrefix(channelId, ChannelIdPrefix) {
		s.log.Info("channel title unavailable", "channel_id", channelId, "reason", "not a UC channel id")
		return "", errors.Wrapf(ErrInvalidChannelID, "channel %q", channelId)
	}
	if err := s.wait(ctx); err != nil {
		return "", errors.Wrap(err, "interrupted before channels.list")
	}
	s.log.Debug("calling channels.list", "channel_id", channelId)
	response, err := s.yt.Channels.List(snippetPart).Id(channelId).Context(ctx).Do()
	if err != nil {
		s.logAPIError("channels.list failed", channelId, err)
		return "", errors.Wrapf(ErrTransport, "channels.list %v: %v", channelId, err)
	}
	s.log.Debug("channels.list response", "channel_id", channelId, "items", len(response.Items))
	if len(response.Items) == 0 || response.Items[0].Snippet == nil || response.Items[0].Snippet.Title == "" {
		s.log.Info("channel title unavailable", "channel_id", channelId, "reason", "empty response")
		return "", errors.Wrapf(ErrNotFound, "channel %v", channelId)
	}
	return response.Items[0].Snippet.Title, nil
}

// RecentLiveVideos returns videos published by channelId in the trailing
// three days, in upstream order. The slice is never nil: on failure it is
// empty and the error says why, so callers may treat both alike.
func (s *Service) RecentLiveVideos(ctx context.Context, channelId string) ([]Video, error) {
	videos := []Video{}
	if !strings.HasPrefix(channelId, ChannelIdPrefix) {
		s.log.Debug("skipping video search", "channel_id", channelId, "reason", "not a UC channel id")
		return videos, errors.Wrapf(ErrInvalidChannelID, "channel %q", channelId)
	}
	if err := s.wait(ctx); err != nil {
		return videos, errors.Wrap(err, "interrupted before search.list")
	}
	publishedAfter := s.now().Add(-recentWindow).UTC().Format(time.RFC3339)
	s.log.Debug("calling search.list", "channel_id", channelId, "published_after", publishedAfter)
	response, err := s.yt.Search.
		List(snippetPart).
		Context(ctx).
		ChannelId(channelId).
		Type(videoType).
		PublishedAfter(publishedAfter).
		Do()
	if err != nil {
		s.logAPIError("search.list failed", channelId, err)
		return videos, errors.Wrapf(ErrTransport, "search.list %v: %v", channelId, err)
	}
	s.log.Debug("search.list response", "channel_id", channelId, "items", len(response.Items))
	if len(response.Items) == 0 {
		return videos, nil
	}
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			s.log.Debug("search result without video id", "channel_id", channelId)
			continue
		}
		v := Video{Id: item.Id.VideoId}
		if item.Snippet != nil {
			v.Title = item.Snippet.Title
			v.ChannelId = item.Snippet.ChannelId
			v.ChannelTitle = item.Snippet.ChannelTitle
			v.PublishedAt = item.Snippet.PublishedAt
			v.LiveBroadcastContent = item.Snippet.LiveBroadcastContent
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) logAPIError(msg, channelId string, err error) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		s.log.Info(msg, "channel_id", channelId, "status", apiErr.Code, "message", apiErr.Message)
		return
	}
	s.log.Info(msg, "channel_id", channelId, "err", err)
}
