// internal/controller/contact_controller.go
package controller

import (
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldmail-backend/internal/contactsource"
	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/handler"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

type ContactController struct {
	ContactService *service.ContactService
	Log            *logger.Logger
}

func (c *ContactController) Routes(r chi.Router) {
	r.Get("/contacts", c.ListContacts)
	r.Post("/contacts", c.CreateContact)
	r.Post("/contacts/import", c.ImportContacts)
	r.Get("/contacts/{id}", c.GetContact)
	r.Put("/contacts/{id}", c.UpdateContact)
	r.Delete("/contacts/{id}", c.DeleteContact)
	r.Get("/contacts/{id}/emails", c.ContactEmails)
}

func (c *ContactController) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := c.ContactService.ListContacts(r.Context())
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]any{"data": contacts})
}

func (c *ContactController) CreateContact(w http.ResponseWriter, r *http.Request) {
	var body model.ContactInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	contact, err := c.ContactService.CreateContact(r.Context(), body)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, contact)
}

// ImportContacts accepts either a JSON array of rows or a CSV sheet
// (Content-Type text/csv) with a header row.
func (c *ContactController) ImportContacts(w http.ResponseWriter, r *http.Request) {
	var source contactsource.Source
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		source = contactsource.NewCSVSource(r.Body)
	} else {
		var rows []model.ContactInput
		if err := handler.DecodeJSON(r, &rows); err != nil {
			handler.WriteError(w, c.Log, err)
			return
		}
		source = contactsource.NewStaticSource(rows)
	}

	rows, err := source.Rows(r.Context())
	if err != nil {
		handler.WriteError(w, c.Log, appErrors.NewValidation("file", "%v", err))
		return
	}

	result, err := c.ContactService.ImportContacts(r.Context(), rows)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, result)
}

func (c *ContactController) GetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := c.ContactService.GetContact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, contact)
}

func (c *ContactController) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var body model.ContactInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	contact, err := c.ContactService.UpdateContact(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, contact)
}

func (c *ContactController) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := c.ContactService.DeleteContact(r.Context(), chi.URLParam(r, "id")); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ContactEmails returns the delivery history of one contact
func (c *ContactController) ContactEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := c.ContactService.ContactEmails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]any{"data": emails})
}
