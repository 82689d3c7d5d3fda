package pixel

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x01, 0x44,
	0x00, 0x3b,
}

type HandlerConfig struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
}

type Handler struct {
	service *Service
	cfg     HandlerConfig
	logger  *zap.Logger
}

func NewHandler(service *Service, cfg HandlerConfig, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// The pixel itself is never rate limited; it must always render.
	r.Get("/api/pixel/{id}", h.HandleOpen)

	r.Group(func(r chi.Router) {
		if h.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(h.cfg.RateLimitPerMinute, time.Minute))
		}
		r.Get("/api/pixel/create", h.HandleCreate)
		r.Post("/api/pixel/check", h.HandleCheck)
		r.Post("/api/pixel/ping", h.HandlePing)
		r.Post("/api/pixel/end", h.HandleEnd)
		r.Get("/api/dashboard", h.HandleDashboard)
	})

	r.Get("/health", h.HandleHealth)
	return r
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var metadata json.RawMessage
	if raw := r.URL.Query().Get("metadata"); raw != "" {
		metadata = json.RawMessage(raw)
	}

	created, err := h.service.Create(r.Context(), metadata)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ev := OpenEvent{
		PixelID:   chi.URLParam(r, "id"),
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
		At:        h.service.clock.Now(),
	}

	// Tracking failures are logged only; the image is served regardless.
	if _, err := h.service.RecordOpen(r.Context(), ev); err != nil && !errors.Is(err, ErrPixelNotFound) {
		h.logger.Error("Error tracking pixel", zap.String("pixel_id", ev.PixelID), zap.Error(err))
	}
	servePixel(w)
}

type checkRequest struct {
	ID string `json:"id"`
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Pixel ID is required"})
		return
	}

	check, err := h.service.Check(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, ErrPixelNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"opened": false, "message": "Pixel not found"})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

type pingRequest struct {
	PixelID   string   `json:"pixelId"`
	SessionID string   `json:"sessionId"`
	Timestamp *float64 `json:"timestamp"`
}

func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid ping payload"})
		return
	}
	if req.PixelID == "" || req.SessionID == "" || req.Timestamp == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "pixelId, sessionId and timestamp are required"})
		return
	}

	rec, err := h.service.Ping(r.Context(), req.PixelID, req.SessionID, time.UnixMilli(int64(*req.Timestamp)))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type endRequest struct {
	PixelID   string   `json:"pixelId"`
	SessionID string   `json:"sessionId"`
	Duration  *float64 `json:"duration,omitempty"`
}

func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid end payload"})
		return
	}

	var clientDuration int64
	if req.Duration != nil {
		clientDuration = int64(*req.Duration)
	}

	rec, err := h.service.End(r.Context(), req.PixelID, req.SessionID, clientDuration)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Dashboard(r.Context()))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"pixels": h.service.store.Len(),
	})
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPixelNotFound), errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	_, _ = w.Write(pixelGIF)
}

// clientIP reads the peer address. Proxy headers are resolved once, upstream,
// by middleware.RealIP; reading them here again would let clients forge new IPs.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
