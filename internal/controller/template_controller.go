// internal/controller/template_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldmail-backend/internal/handler"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

type TemplateController struct {
	TemplateService *service.TemplateService
	Log             *logger.Logger
}

func (c *TemplateController) Routes(r chi.Router) {
	r.Get("/templates", c.ListTemplates)
	r.Post("/templates", c.CreateTemplate)
	r.Get("/templates/placeholders", c.Placeholders)
	r.Post("/templates/preview", c.Preview)
	r.Get("/templates/{id}", c.GetTemplate)
	r.Put("/templates/{id}", c.UpdateTemplate)
	r.Delete("/templates/{id}", c.DeleteTemplate)
}

func (c *TemplateController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.TemplateService.ListTemplates(r.Context())
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]any{"data": templates})
}

func (c *TemplateController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body service.TemplateInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	tpl, err := c.TemplateService.CreateTemplate(r.Context(), body)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, tpl)
}

// Placeholders lists the tokens templates may use
func (c *TemplateController) Placeholders(w http.ResponseWriter, r *http.Request) {
	handler.RespondJSON(w, http.StatusOK, map[string]any{"data": service.PlaceholderTokens()})
}

// Preview renders a template for one contact without sending it
func (c *TemplateController) Preview(w http.ResponseWriter, r *http.Request) {
	var body service.PreviewRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	rendered, err := c.TemplateService.RenderPreview(r.Context(), body)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]any{
		"rendered_message": rendered,
		"template_id":      body.TemplateID,
		"contact_id":       body.ContactID,
	})
}

func (c *TemplateController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := c.TemplateService.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, tpl)
}

func (c *TemplateController) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var body service.TemplateInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	tpl, err := c.TemplateService.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, tpl)
}

func (c *TemplateController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := c.TemplateService.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
