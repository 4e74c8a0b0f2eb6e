package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TrackResponse is the answer to a tracked storefront interaction
type TrackResponse struct {
	Success bool            `json:"success"`
	FbResp  json.RawMessage `json:"fbResp,omitempty"`
	Message string          `json:"message,omitempty"`
}

// PixelHandler handles HTTP requests for the conversion event relay
type PixelHandler struct {
	pixelService service.PixelService
	logger       *zap.Logger
}

// NewPixelHandler creates a new PixelHandler
func NewPixelHandler(pixelService service.PixelService, logger *zap.Logger) *PixelHandler {
	return &PixelHandler{
		pixelService: pixelService,
		logger:       logger,
	}
}

// RegisterRoutes registers the pixel routes. trackLimit guards the public
// tracking endpoint.
func (h *PixelHandler) RegisterRoutes(r chi.Router, trackLimit func(http.Handler) http.Handler) {
	r.With(trackLimit).Post("/pixel/track", h.Track)
	r.Get("/pixel/events", h.ListEvents)
}

// Track relays one storefront interaction. An event the ad platform did not
// accept is stored and answered with 202.
func (h *PixelHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req service.TrackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	result, err := h.pixelService.Track(r.Context(), req, service.ClientInfo{
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
		UserAgent:    r.UserAgent(),
		Referer:      r.Referer(),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if !result.Sent {
		middleware.RespondWithJSON(w, http.StatusAccepted, TrackResponse{
			Success: false,
			Message: "Event queued for retry",
		})
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, TrackResponse{Success: true, FbResp: result.Response})
}

// ListEvents lists stored undelivered events, filtered by ?status= and capped by ?limit=
func (h *PixelHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	events, err := h.pixelService.ListEvents(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(events))
}
