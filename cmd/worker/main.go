package main

import (
	"errors"
	"flag"

	"github.com/mikemajesty/monorepo/internal/config"
	"github.com/mikemajesty/monorepo/internal/events"
	"github.com/mikemajesty/monorepo/internal/obs"
)

var version = "dev"

func main() {
	concurrency := flag.Int("concurrency", 4, "Number of concurrent email tasks")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal().Err(err).Msg("load config")
	}
	obs.Configure(cfg.LogLevel, cfg.IsLocal())
	obs.Init()
	obs.InitBuildInfo("worker", version)

	if err := run(cfg, *concurrency); err != nil {
		obs.Logger().Fatal().Err(err).Msg("worker stopped")
	}
}

// run blocks until asynq receives SIGTERM or SIGINT.
func run(cfg *config.Config, concurrency int) error {
	if cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required for the worker")
	}
	w, err := events.NewWorker(cfg.RedisURL, concurrency, events.LogMailer{}, cfg.EmailFrom)
	if err != nil {
		return err
	}
	obs.Logger().Info().Int("concurrency", concurrency).Str("version", version).Msg("worker started")
	return w.Run()
}
