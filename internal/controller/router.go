package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/coldmail-backend/internal/handler"
	"github.com/unclebandit/coldmail-backend/internal/logger"
)

// API groups every route owner the server mounts
type API struct {
	Contacts  *ContactController
	Templates *TemplateController
	Campaigns *CampaignController
	Emails    *handler.EmailHandler
	Mail      *handler.MailHandler
	Data      *handler.DataHandler
	Log       *logger.Logger
}

// NewRouter builds the HTTP router with the common middleware
func NewRouter(api API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(api.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	api.Contacts.Routes(r)
	api.Templates.Routes(r)
	api.Campaigns.Routes(r)
	api.Emails.Routes(r)
	api.Mail.Routes(r)
	api.Data.Routes(r)
	return r
}
