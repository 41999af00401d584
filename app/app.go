// Package app wires the configured store, platform client and notifiers
// into a reconciler. Implementations are chosen once here and never
// switched afterwards.
package app

import (
	"context"
	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/option"
	"sync"
	"youtube-stream-watcher/config"
	"youtube-stream-watcher/db"
	"youtube-stream-watcher/logging"
	"youtube-stream-watcher/metrics"
	"youtube-stream-watcher/mutex"
	"youtube-stream-watcher/notify"
	"youtube-stream-watcher/reconcile"
	"youtube-stream-watcher/youtube"
)

var ErrPassRunning = errors.New("a pass is already running")

type App struct {
	cfg        config.Config
	log        *logging.Sink
	reconciler *reconcile.Reconciler
	registry   *prometheus.Registry
	lock       mutex.Locker
	mu         sync.Mutex
	closers    []func() error
}

// New builds every component from cfg. ytOpts are passed to the YouTube
// client after the API key option.
func New(ctx context.Context, cfg config.Config, log *logging.Sink, ytOpts ...option.ClientOption) (*App, error) {
	a := &App{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	for _, err := range cfg.Missing() {
		log.Info("feature degraded", "err", err)
	}
	m := metrics.New(a.registry)

	store, err := a.newStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.APIKey == "" {
		ytOpts = append([]option.ClientOption{option.WithoutAuthentication()}, ytOpts...)
	}
	platform, err := youtube.NewService(ctx, cfg.APIKey, cfg.CallDelay, log.With("component", "youtube"), ytOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	var targets []notify.Target
	if cfg.WebhookURL != "" {
		targets = append(targets, notify.NewSlack(cfg.WebhookURL))
	}
	if cfg.TelegramEnabled() {
		telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, "")
		if err != nil {
			a.Close()
			return nil, err
		}
		targets = append(targets, telegram)
	}
	notifier := notify.New(cfg.NotifyEnabled, cfg.CallDelay, log.With("component", "notify"), m, targets...)

	if cfg.RedisAddress != "" {
		builder := mutex.NewBuilder(cfg.RedisAddress)
		a.lock = builder.Pass(cfg.Backend)
		a.closers = append(a.closers, builder.Close)
	}

	a.reconciler = reconcile.New(store, platform, notifier, log.With("component", "reconcile"), m)
	return a, nil
}

func (a *App) newStore(ctx context.Context) (reconcile.Store, error) {
	switch a.cfg.Backend {
	case config.BackendSheets:
		var opts []option.ClientOption
		if a.cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(a.cfg.CredentialsFile))
		}
		return db.NewSheets(ctx, a.cfg.SpreadsheetID, opts...)
	case config.BackendPostgres:
		d := db.New(a.cfg.DBAddress, a.cfg.DBUser, a.cfg.DBPassword, a.cfg.DBName)
		a.closers = append(a.closers, d.Close)
		if a.cfg.DBTimeout > 0 {
			d.SetTimeout(a.cfg.DBTimeout)
		}
		if a.cfg.Debug {
			d.EnableDebug()
		}
		if err := d.EnsureTables(ctx); err != nil {
			return nil, err
		}
		return d, nil
	default:
		a.log.Info("using in-memory store; changes are lost on exit")
		return db.NewMemory(db.SampleRoster(), nil), nil
	}
}

// RunPass runs one reconciliation pass unless another one is in progress,
// in this process or, with Redis configured, in any process.
func (a *App) RunPass(ctx context.Context) (reconcile.Summary, error) {
	if !a.mu.TryLock() {
		return reconcile.Summary{}, ErrPassRunning
	}
	defer a.mu.Unlock()
	if a.lock != nil {
		err := a.lock.Lock()
		if errors.Is(err, redsync.ErrFailed) {
			return reconcile.Summary{}, errors.Wrap(ErrPassRunning, "held by another process")
		}
		if err != nil {
			return reconcile.Summary{}, errors.Wrap(err, "cannot acquire pass lock")
		}
		defer func() {
			if _, err := a.lock.Unlock(); err != nil {
				a.log.Error("cannot release pass lock", "err", err)
			}
		}()
	}
	return a.reconciler.Run(ctx)
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
