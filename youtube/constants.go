package youtube

import "time"

const (
	// Only channel ids carrying this prefix can be queried.
	ChannelIdPrefix = "UC"

	WatchURLFormat   = "https://www.youtube.com/watch?v=%v"
	ChannelURLFormat = "https://www.youtube.com/channel/%v"
)

const (
	DefaultCallDelay = time.Second
	// Search window for recent videos.
	recentWindow = 3 * 24 * time.Hour
	videoType    = "video"
)

var snippetPart = []string{"snippet"}
