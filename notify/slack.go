package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"io"
	"net/http"
	"time"
	"youtube-stream-watcher/templates"
)

const slackTimeout = time.Second * 10

// Slack posts to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
}

func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL, client: &http.Client{Timeout: slackTimeout}}
}

func (s *Slack) Name() string {
	return "slack"
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Blocks []slackBlock `json:"blocks"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
	Blocks      []slackBlock      `json:"blocks"`
}

func slackMessage(m Message) slackPayload {
	tier := m.Tier()
	scheduledAt := m.ScheduledAt
	if scheduledAt == "" {
		scheduledAt = "-"
	}
	summary := fmt.Sprintf(templates.SlackSummary, m.Platform, m.ChannelTitle, m.Title, scheduledAt, m.StreamURL())
	return slackPayload{
		Attachments: []slackAttachment{{
			Color: tier.Color,
			Blocks: []slackBlock{
				{Type: "section", Text: &slackText{Type: "mrkdwn", Text: summary}},
				{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf(templates.SlackStatus, tier.Label)}}},
			},
		}},
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "plain_text", Text: m.StreamURL()}},
		},
	}
}

func (s *Slack) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(slackMessage(m))
	if err != nil {
		return errors.Wrap(err, "unable to encode slack payload")
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "unable to build slack request")
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := s.client.Do(request)
	if err != nil {
		return errors.Wrap(err, "unable to post to slack webhook")
	}
	defer response.Body.Close()
	code := response.StatusCode
	if code < 200 || code > 299 {
		body, err := io.ReadAll(response.Body)
		if err != nil {
			return errors.Errorf("unexpected slack status %v; can't read body: %v", code, err.Error())
		}
		return errors.Errorf("unexpected slack status %v; body: %v", code, string(body))
	}
	return nil
}
