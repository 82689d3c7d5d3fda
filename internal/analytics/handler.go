package analytics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultSummaryRange = 24 * time.Hour

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/analytics/summaries", h.HandleSummaries)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "SERVING"})
	})
	return r
}

// HandleSummaries returns hourly rollups between from and to (RFC3339).
// The range defaults to the last 24 hours.
func (h *Handler) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := h.service.now().UTC()
	from := to.Add(-defaultSummaryRange)

	var err error
	if v := q.Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid from"})
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid to"})
			return
		}
	}
	if from.After(to) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "from must not be after to"})
		return
	}

	summaries, err := h.service.GetSummaries(r.Context(), from, to, q.Get("pixelId"))
	if err != nil {
		h.logger.Error("Failed to get summaries", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	if summaries == nil {
		summaries = []*Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
