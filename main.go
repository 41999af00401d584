package main

import (
	"context"
	"flag"
	"github.com/joho/godotenv"
	"log"
	"os"
	"os/signal"
	"syscall"
	"youtube-stream-watcher/app"
	"youtube-stream-watcher/config"
	"youtube-stream-watcher/logging"
)

func main() {
	propertyFile := flag.String("config", "", "optional JSON property file; environment variables take precedence")
	serve := flag.Bool("serve", false, "serve POST /pass, /healthz and /metrics instead of running a single pass")
	flag.Parse()

	// .env is a local convenience; real deployments set the environment.
	_ = godotenv.Load()

	var provider config.Provider = config.Env{}
	if *propertyFile != "" {
		properties, err := config.ReadProperties(*propertyFile)
		if err != nil {
			log.Fatalf("unable to read config: %v", err.Error())
		}
		provider = config.Chain{config.Env{}, properties}
	}
	cfg, err := config.Load(provider)
	if err != nil {
		log.Fatalf("unable to load config: %v", err.Error())
	}
	sink := logging.Stdout(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sink, *serve); err != nil {
		sink.Error("stream watcher stopped", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, sink *logging.Sink, serve bool) error {
	a, err := app.New(ctx, cfg, sink)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			sink.Error("shutdown failed", "err", err)
		}
	}()

	if serve {
		return a.Serve(ctx)
	}
	_, err = a.RunPass(ctx)
	return err
}
