// internal/controller/campaign_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldmail-backend/internal/handler"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Scheduler       *service.CampaignScheduler
	// DefaultDailyLimit applies when a schedule request leaves daily_limit out
	DefaultDailyLimit int
	Log               *logger.Logger
}

func (c *CampaignController) Routes(r chi.Router) {
	r.Get("/campaigns", c.ListCampaigns)
	r.Post("/campaigns", c.CreateCampaign)
	r.Post("/campaigns/schedule", c.ScheduleCampaign)
	r.Get("/campaigns/{id}", c.GetCampaignDetails)
	r.Put("/campaigns/{id}", c.UpdateCampaign)
	r.Delete("/campaigns/{id}", c.DeleteCampaign)
	r.Post("/campaigns/{id}/toggle", c.ToggleStatus)
	r.Post("/campaigns/{id}/complete", c.CompleteCampaign)
	r.Post("/campaigns/{id}/send-next-batch", c.SendNextBatch)
	r.Get("/campaigns/{id}/emails", c.CampaignEmails)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize, status)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// CreateCampaign stores a draft; it is started with the toggle endpoint
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CampaignInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, campaign)
}

// ScheduleCampaign creates an active campaign and dispatches its first batch
func (c *CampaignController) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.ScheduleRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	if body.DailyLimit == 0 {
		body.DailyLimit = c.DefaultDailyLimit
	}

	result, err := c.Scheduler.ScheduleCampaign(r.Context(), body)
	if err != nil && result == nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	respondBatch(w, http.StatusCreated, result, err)
}

// respondBatch writes a batch result. An interrupted batch still reports
// what was dispatched, along with the error.
func respondBatch(w http.ResponseWriter, code int, result *service.CampaignResult, err error) {
	if err != nil {
		handler.RespondJSON(w, http.StatusAccepted, map[string]any{
			"result": result,
			"error":  err.Error(),
		})
		return
	}
	handler.RespondJSON(w, code, result)
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, details)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CampaignInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	campaign, err := c.CampaignService.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := c.CampaignService.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.ToggleStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) CompleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.CompleteCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, campaign)
}

// SendNextBatch dispatches the next batch inline, or hands it to the
// worker when enqueue=true.
func (c *CampaignController) SendNextBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if enqueue, _ := strconv.ParseBool(r.URL.Query().Get("enqueue")); enqueue {
		if err := c.CampaignService.EnqueueNextBatch(r.Context(), id); err != nil {
			handler.WriteError(w, c.Log, err)
			return
		}
		handler.RespondJSON(w, http.StatusAccepted, map[string]any{
			"campaign_id": id,
			"queued":      true,
		})
		return
	}

	result, err := c.Scheduler.DispatchNextBatch(r.Context(), id)
	if err != nil && result == nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	respondBatch(w, http.StatusOK, result, err)
}

func (c *CampaignController) CampaignEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := c.CampaignService.CampaignEmails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]any{"data": emails})
}
