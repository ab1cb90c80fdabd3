package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

// DataHandler serves the export and wipe endpoints
type DataHandler struct {
	Data *service.DataService
	Log  *logger.Logger
}

func (h *DataHandler) Routes(r chi.Router) {
	r.Get("/data/export", h.Export)
	r.Delete("/data", h.Clear)
	r.Get("/healthz", Health)
}

// Export returns every collection as one JSON document
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	export, err := h.Data.Export(r.Context())
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="coldmail-export.json"`)
	RespondJSON(w, http.StatusOK, export)
}

func (h *DataHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Data.ClearAll(r.Context()); err != nil {
		WriteError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health reports that the process is serving
func Health(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
