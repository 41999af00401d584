package templates

import _ "embed"

var (
	//go:embed resource/slackSummary.txt
	SlackSummary string
	//go:embed resource/slackStatus.txt
	SlackStatus string
	//go:embed resource/telegram.txt
	Telegram string
)
