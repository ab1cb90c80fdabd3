package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

// EmailHandler serves one-off sends and delivery status updates
type EmailHandler struct {
	Scheduler *service.CampaignScheduler
	Contacts  *service.ContactService
	Delivery  *service.DeliveryService
	Log       *logger.Logger
}

// Routes mounts the email endpoints on r
func (h *EmailHandler) Routes(r chi.Router) {
	r.Post("/emails/send", h.SendEmail)
	r.Post("/emails/test", h.SendTestEmail)
	r.Get("/emails/{id}", h.GetEmail)
	r.Patch("/emails/{id}/status", h.UpdateStatus)
}

// SendEmail sends a composed message to one stored contact
func (h *EmailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req service.SendEmailRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, h.Log, err)
		return
	}

	entry, err := h.Scheduler.SendEmail(r.Context(), req)
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	RespondJSON(w, http.StatusCreated, entry)
}

type testEmailRequest struct {
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	ContactID string         `json:"contact_id,omitempty"`
	Contact   *model.Contact `json:"contact,omitempty"`
	To        string         `json:"to,omitempty"`
}

// SendTestEmail renders the draft for a contact (stored, inline or just an
// address) and sends it right away
func (h *EmailHandler) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req testEmailRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, h.Log, err)
		return
	}

	contact := req.Contact
	switch {
	case req.ContactID != "":
		c, err := h.Contacts.GetContact(r.Context(), req.ContactID)
		if err != nil {
			WriteError(w, h.Log, err)
			return
		}
		contact = c
	case contact == nil && req.To != "":
		contact = &model.Contact{Email: req.To}
	}
	if contact != nil && req.To != "" {
		copied := *contact
		copied.Email = req.To
		contact = &copied
	}

	receipt, err := h.Scheduler.SendTestEmail(r.Context(), req.Subject, req.Body, contact)
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message_id": receipt.MessageID,
		"to":         contact.Email,
	})
}

func (h *EmailHandler) GetEmail(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Delivery.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	RespondJSON(w, http.StatusOK, entry)
}

type statusRequest struct {
	Status model.DeliveryStatus `json:"status"`
	At     *time.Time           `json:"at,omitempty"`
}

// UpdateStatus records a delivery event reported for a sent message
func (h *EmailHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, h.Log, err)
		return
	}
	if req.Status == "" {
		WriteError(w, h.Log, appErrors.NewValidation("status", "status is required"))
		return
	}

	entry, err := h.Delivery.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.At)
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	RespondJSON(w, http.StatusOK, entry)
}
