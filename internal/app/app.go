// Package app wires the stores, services and queue shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/db"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/service"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

// App holds everything a binary needs
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Store     store.Store
	Transport mailer.Transport
	Queue     queue.Queue
	// Remote is true when Queue is shared with other processes
	Remote bool

	Scheduler *service.CampaignScheduler
	Contacts  *service.ContactService
	Templates *service.TemplateService
	Campaigns *service.CampaignService
	Delivery  *service.DeliveryService
	Data      *service.DataService

	closers []func() error
}

// New opens the configured store, transport and queue and builds the services
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	s, closeStore, err := db.OpenStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.Store = s
	a.closers = append(a.closers, closeStore)

	transport, err := mailer.New(ctx, cfg.Mail, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create mail transport: %w", err)
	}
	a.Transport = transport

	if cfg.AMQP.URL != "" {
		q, err := queue.DialAMQP(cfg.AMQP.URL, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to queue: %w", err)
		}
		a.Queue, a.Remote = q, true
		a.closers = append(a.closers, q.Close)
	} else {
		a.Queue = queue.NewInMemoryQueue(log)
	}

	contactRepo := repository.NewContactRepository(s)
	templateRepo := repository.NewTemplateRepository(s)
	campaignRepo := repository.NewCampaignRepository(s)
	deliveryRepo := repository.NewDeliveryLogRepository(s)

	a.Scheduler = &service.CampaignScheduler{
		CampaignRepo: campaignRepo,
		TemplateRepo: templateRepo,
		ContactRepo:  contactRepo,
		DeliveryRepo: deliveryRepo,
		Transport:    transport,
		Location:     cfg.Scheduler.Location(),
		Log:          log,
		Locks:        s,
	}
	if cfg.Mail.SimulateUnauthenticatedTestSends {
		a.Scheduler.TestFallback = mailer.NewSimulated()
	}

	a.Contacts = &service.ContactService{ContactRepo: contactRepo, DeliveryRepo: deliveryRepo, Log: log}
	a.Templates = &service.TemplateService{TemplateRepo: templateRepo, ContactRepo: contactRepo, DeliveryRepo: deliveryRepo}
	a.Campaigns = &service.CampaignService{
		CampaignRepo: campaignRepo,
		TemplateRepo: templateRepo,
		DeliveryRepo: deliveryRepo,
		Queue:        a.Queue,
		Topic:        cfg.AMQP.Queue,
		Log:          log,
	}
	a.Delivery = &service.DeliveryService{DeliveryRepo: deliveryRepo, ContactRepo: contactRepo, Log: log}
	a.Data = &service.DataService{
		Store:        s,
		ContactRepo:  contactRepo,
		TemplateRepo: templateRepo,
		CampaignRepo: campaignRepo,
		DeliveryRepo: deliveryRepo,
		Log:          log,
	}
	return a, nil
}

// NewWorker returns a batch worker consuming the app's queue
func (a *App) NewWorker() *service.Worker {
	return service.NewWorker(a.Scheduler, a.Queue, a.Config.AMQP.Queue, a.Log)
}

// NewTrigger returns the cron trigger for due batches
func (a *App) NewTrigger() *service.BatchTrigger {
	return &service.BatchTrigger{
		Due:   a.Scheduler,
		Queue: a.Queue,
		Topic: a.Config.AMQP.Queue,
		Log:   a.Log,
	}
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
