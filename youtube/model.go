package youtube

import "fmt"

// Video is one search result for a channel. LiveBroadcastContent is passed
// through untouched: upcoming, live, none, or whatever upstream sends.
type Video struct {
	Id                   string
	Title                string
	ChannelId            string
	ChannelTitle         string
	PublishedAt          string
	LiveBroadcastContent string
}

func (v Video) URL() string {
	return WatchURL(v.Id)
}

func WatchURL(videoId string) string {
	return fmt.Sprintf(WatchURLFormat, videoId)
}

func ChannelURL(channelId string) string {
	return fmt.Sprintf(ChannelURLFormat, channelId)
}
