package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/hangr/internal/application"
	"github.com/example/hangr/internal/geo"
)

type filterService interface {
	Save(ctx context.Context, clientKey string, state application.FilterState) (application.FilterState, error)
	Load(ctx context.Context, clientKey string) (application.FilterState, error)
}

// FilterHandler exposes the saved discovery filters of the client session.
type FilterHandler struct {
	service   filterService
	responder responder
	logger    *slog.Logger
}

func NewFilterHandler(service filterService, logger *slog.Logger) *FilterHandler {
	base := defaultLogger(logger)
	return &FilterHandler{service: service, responder: newResponder(base), logger: base}
}

// Get handles GET /filters.
func (h *FilterHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Load(r.Context(), ClientKeyFromContext(r.Context()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toFilterDTO(state))
}

// Put handles PUT /filters.
func (h *FilterHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientKey := ClientKeyFromContext(ctx)
	if clientKey == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errMissingClientKey)
		return
	}

	var req filterDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	state := application.FilterState{Emoji: req.Emoji, Date: req.Date}
	switch {
	case req.Lat != nil && req.Lng != nil:
		state.Location = &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	case req.Lat != nil || req.Lng != nil:
		h.responder.handleServiceError(ctx, w, &application.ValidationError{FieldErrors: map[string]string{"location": "invalid"}})
		return
	}

	saved, err := h.service.Save(ctx, clientKey, state)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	handlerLogger(ctx, h.logger, "FilterHandler", "Put").DebugContext(ctx, "filters saved", "emoji", saved.Emoji, "date", saved.Date)
	h.responder.writeJSON(ctx, w, http.StatusOK, toFilterDTO(saved))
}

type filterDTO struct {
	Emoji     string   `json:"emoji"`
	Date      string   `json:"date"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

func toFilterDTO(state application.FilterState) filterDTO {
	dto := filterDTO{Emoji: state.Emoji, Date: state.Date}
	if state.Location != nil {
		lat, lng := state.Location.Lat, state.Location.Lng
		dto.Lat, dto.Lng = &lat, &lng
	}
	if !state.UpdatedAt.IsZero() {
		dto.UpdatedAt = state.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
