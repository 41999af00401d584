package notify

const (
	StatusUpcoming = "upcoming"
	StatusLive     = "live"
)

// Tier is how a stream status is presented.
type Tier struct {
	Name  string
	Color string
	Label string
}

var (
	TierScheduled  = Tier{Name: "scheduled", Color: "#f2c744", Label: ":large_yellow_circle: upcoming"}
	TierInProgress = Tier{Name: "in progress", Color: "#e01e5a", Label: ":red_circle: live"}
	TierEnded      = Tier{Name: "ended or unknown", Color: "#cccccc"}
)

// TierFor maps a status to its tier. Anything but upcoming and live, none
// included, is neutral and labelled with the raw status.
func TierFor(status string) Tier {
	switch status {
	case StatusUpcoming:
		return TierScheduled
	case StatusLive:
		return TierInProgress
	}
	t := TierEnded
	t.Label = status
	if t.Label == "" {
		t.Label = "unknown"
	}
	return t
}
