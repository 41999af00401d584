package config

import (
	"github.com/pkg/errors"
	"strconv"
	"strings"
	"time"
)

const (
	DebugLogEnabled   = "DEBUG_LOG_ENABLED"
	SlackNotify       = "ENABLE_SLACK_NOTIFY"
	YoutubeAPIKey     = "YOUTUBE_API_KEY"
	SlackWebhookURL   = "SLACK_WEBHOOK_URL"
	TelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	TelegramChatID    = "TELEGRAM_CHAT_ID"
	StoreBackend      = "STORE_BACKEND"
	SpreadsheetID     = "SPREADSHEET_ID"
	GoogleCredentials = "GOOGLE_CREDENTIALS_FILE"
	DBAddress         = "DB_ADDRESS"
	DBUser            = "DB_USER"
	DBPassword        = "DB_PASSWORD"
	DBName            = "DB_NAME"
	DBTimeout         = "DB_TIMEOUT"
	RedisAddress      = "REDIS_ADDRESS"
	CallDelay         = "CALL_DELAY"
	HTTPAddress       = "HTTP_ADDRESS"
)

const (
	BackendMemory   = "memory"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

const (
	defaultCallDelay   = time.Second
	defaultHTTPAddress = ":42069"
	defaultDBAddress   = ":5432"
)

var (
	ErrConfigMissing  = errors.New("configuration value is missing")
	ErrInvalidBackend = errors.New("unknown store backend")
)

// Config is resolved once at startup and passed by value afterwards.
type Config struct {
	Debug bool
	// NotifyEnabled gates every notification target, Telegram included,
	// despite the Slack-specific key name.
	NotifyEnabled bool
	APIKey        string
	WebhookURL    string

	TelegramToken  string
	TelegramChatID int64

	Backend         string
	SpreadsheetID   string
	CredentialsFile string

	DBAddress  string
	DBUser     string
	DBPassword string
	DBName     string
	// DBTimeout bounds each Postgres call; zero keeps the store default.
	DBTimeout time.Duration

	RedisAddress string
	CallDelay    time.Duration
	HTTPAddress  string
}

// Load resolves every recognized option from p. Absent secrets are not an
// error; use Missing to report which features will degrade to no-ops.
func Load(p Provider) (Config, error) {
	c := Config{
		Debug:           flag(p, DebugLogEnabled),
		NotifyEnabled:   flag(p, SlackNotify),
		APIKey:          value(p, YoutubeAPIKey),
		WebhookURL:      value(p, SlackWebhookURL),
		TelegramToken:   value(p, TelegramBotToken),
		Backend:         strings.ToLower(value(p, StoreBackend)),
		SpreadsheetID:   value(p, SpreadsheetID),
		CredentialsFile: value(p, GoogleCredentials),
		DBAddress:       value(p, DBAddress),
		DBUser:          value(p, DBUser),
		DBPassword:      value(p, DBPassword),
		DBName:          value(p, DBName),
		RedisAddress:    value(p, RedisAddress),
		CallDelay:       defaultCallDelay,
		HTTPAddress:     value(p, HTTPAddress),
	}
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	switch c.Backend {
	case BackendMemory, BackendSheets, BackendPostgres:
	default:
		return Config{}, errors.Wrapf(ErrInvalidBackend, "%v=%v", StoreBackend, c.Backend)
	}
	if c.HTTPAddress == "" {
		c.HTTPAddress = defaultHTTPAddress
	}
	if c.DBAddress == "" {
		c.DBAddress = defaultDBAddress
	}
	if s := value(p, CallDelay); s != "" {
		d, err := duration(CallDelay, s)
		if err != nil {
			return Config{}, err
		}
		c.CallDelay = d
	}
	if s := value(p, DBTimeout); s != "" {
		d, err := duration(DBTimeout, s)
		if err != nil {
			return Config{}, err
		}
		c.DBTimeout = d
	}
	if s := value(p, TelegramChatID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid %v", TelegramChatID)
		}
		c.TelegramChatID = id
	}
	return c, nil
}

// Missing lists options whose absence disables a feature. Each entry wraps
// ErrConfigMissing.
func (c Config) Missing() []error {
	var missing []error
	if c.APIKey == "" {
		missing = append(missing, errors.Wrap(ErrConfigMissing, YoutubeAPIKey))
	}
	if c.NotifyEnabled && c.WebhookURL == "" {
		missing = append(missing, errors.Wrap(ErrConfigMissing, SlackWebhookURL))
	}
	if c.Backend == BackendSheets && c.SpreadsheetID == "" {
		missing = append(missing, errors.Wrap(ErrConfigMissing, SpreadsheetID))
	}
	return missing
}

// TelegramEnabled reports whether both bot token and chat are configured.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func duration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %v", key)
	}
	if d < 0 {
		return 0, errors.Errorf("invalid %v: negative duration %v", key, d)
	}
	return d, nil
}

func flag(p Provider, key string) bool {
	return value(p, key) == "true"
}

func value(p Provider, key string) string {
	v, ok := p.Lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
