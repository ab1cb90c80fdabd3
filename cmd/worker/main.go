package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/coldmail-backend/internal/app"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/logger"
)

// The worker consumes batch jobs and runs the cron trigger that enqueues
// them. With an AMQP broker any number of workers may share the queue;
// only one of them should run the trigger.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format).WithComponent("worker")

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise")
	}
	defer a.Close()

	if !a.Remote {
		log.Warn().Msg("no amqp.url configured, jobs enqueued by the server will not reach this worker")
	}

	if err := a.NewWorker().Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to register consumer")
	}

	if cfg.Scheduler.RunTrigger {
		c, err := a.NewTrigger().Start(cfg.Scheduler.Cron, cfg.Scheduler.Location())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start batch trigger")
		}
		defer c.Stop()
		log.Info().Str("cron", cfg.Scheduler.Cron).Msg("batch trigger scheduled")
	}

	log.Info().Msg("Worker running, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("worker stopped")
}
