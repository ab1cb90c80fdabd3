// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unclebandit/coldmail-backend/internal/app"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/controller"
	"github.com/unclebandit/coldmail-backend/internal/handler"
	"github.com/unclebandit/coldmail-backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("store", cfg.Store.Backend).Str("mail", cfg.Mail.Provider).Msg("starting coldmail server")

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise")
	}
	defer a.Close()

	// without a broker the batch worker and its cron trigger live here
	if !a.Remote {
		if err := a.NewWorker().Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start worker")
		}
		c, err := a.NewTrigger().Start(cfg.Scheduler.Cron, cfg.Scheduler.Location())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start batch trigger")
		}
		defer c.Stop()
		log.Info().Str("cron", cfg.Scheduler.Cron).Msg("in-process worker started")
	}

	r := controller.NewRouter(controller.API{
		Contacts:  &controller.ContactController{ContactService: a.Contacts, Log: log},
		Templates: &controller.TemplateController{TemplateService: a.Templates, Log: log},
		Campaigns: &controller.CampaignController{
			CampaignService:   a.Campaigns,
			Scheduler:         a.Scheduler,
			DefaultDailyLimit: cfg.Scheduler.DefaultDailyLimit,
			Log:               log,
		},
		Emails: &handler.EmailHandler{Scheduler: a.Scheduler, Contacts: a.Contacts, Delivery: a.Delivery, Log: log},
		Mail:   &handler.MailHandler{Transport: a.Transport, Log: log},
		Data:   &handler.DataHandler{Data: a.Data, Log: log},
		Log:    log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
