package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
)

// MailHandler exposes the state of the mail provider
type MailHandler struct {
	Transport mailer.Transport
	Log       *logger.Logger
}

func (h *MailHandler) Routes(r chi.Router) {
	r.Get("/mail/status", h.Status)
	r.Post("/mail/authenticate", h.Authenticate)
}

func (h *MailHandler) Status(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"provider":      h.Transport.Name(),
		"authenticated": h.Transport.IsAuthenticated(r.Context()),
	})
}

// Authenticate makes one authentication attempt with the provider
func (h *MailHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	ok := h.Transport.Authenticate(r.Context())
	if !ok {
		h.Log.WithComponent("mail").Warn().Str("provider", h.Transport.Name()).Msg("authentication failed")
		ErrorResponse(w, http.StatusUnauthorized, h.Transport.Name()+" authentication failed")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"provider":      h.Transport.Name(),
		"authenticated": true,
	})
}
