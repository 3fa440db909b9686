package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/geocode"
	"github.com/example/hangr/internal/location"
)

type locationTracker interface {
	Options() location.Options
	Begin(key string) uint64
	Settle(key string, seq uint64, p geo.Point) bool
	Deny(key string, seq uint64) bool
	Current(key string) (location.Fix, bool)
	ResolveCity(ctx context.Context, key string, seq uint64, resolver geocode.Resolver) <-chan struct{}
}

// LocationHandler hands out geolocation request options and accepts the
// position fixes reported by clients.
type LocationHandler struct {
	tracker   locationTracker
	resolver  geocode.Resolver
	responder responder
	logger    *slog.Logger
}

func NewLocationHandler(tracker locationTracker, resolver geocode.Resolver, logger *slog.Logger) *LocationHandler {
	base := defaultLogger(logger)
	return &LocationHandler{tracker: tracker, resolver: resolver, responder: newResponder(base), logger: base}
}

// Options handles GET /location/options. Each call issues a new request
// sequence; only the newest one is accepted by Report.
func (h *LocationHandler) Options(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientKey := ClientKeyFromContext(ctx)
	if clientKey == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errMissingClientKey)
		return
	}

	opts := h.tracker.Options()
	h.responder.writeJSON(ctx, w, http.StatusOK, locationOptionsResponse{
		EnableHighAccuracy: opts.HighAccuracy,
		TimeoutMs:          opts.Timeout.Milliseconds(),
		MaximumAgeMs:       opts.MaximumAge.Milliseconds(),
		Seq:                h.tracker.Begin(clientKey),
	})
}

// Report handles POST /location.
func (h *LocationHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientKey := ClientKeyFromContext(ctx)
	if clientKey == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errMissingClientKey)
		return
	}

	var req locationReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	seq := req.Seq
	if seq == 0 {
		seq = h.tracker.Begin(clientKey)
	}
	logger := handlerLogger(ctx, h.logger, "LocationHandler", "Report", "seq", seq)

	var accepted bool
	switch {
	case req.Denied:
		accepted = h.tracker.Deny(clientKey, seq)
	case req.Lat != nil && req.Lng != nil:
		p := geo.Point{Lat: *req.Lat, Lng: *req.Lng}
		if !p.Valid() {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		accepted = h.tracker.Settle(clientKey, seq, p)
		if accepted && h.resolver != nil {
			h.tracker.ResolveCity(ctx, clientKey, seq, h.resolver)
		}
	default:
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if !accepted {
		logger.DebugContext(ctx, "stale location fix discarded")
	}

	resp := locationReportResponse{Accepted: accepted, Seq: seq}
	if fix, ok := h.tracker.Current(clientKey); ok {
		resp.Fix = toFixDTO(fix)
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, resp)
}

type locationOptionsResponse struct {
	EnableHighAccuracy bool   `json:"enable_high_accuracy"`
	TimeoutMs          int64  `json:"timeout_ms"`
	MaximumAgeMs       int64  `json:"maximum_age_ms"`
	Seq                uint64 `json:"seq"`
}

type locationReportRequest struct {
	Seq    uint64   `json:"seq"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Denied bool     `json:"denied"`
}

type fixDTO struct {
	Seq    uint64   `json:"seq"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
	City   string   `json:"city,omitempty"`
	Denied bool     `json:"denied"`
}

type locationReportResponse struct {
	Accepted bool    `json:"accepted"`
	Seq      uint64  `json:"seq"`
	Fix      *fixDTO `json:"fix"`
}

func toFixDTO(fix location.Fix) *fixDTO {
	dto := &fixDTO{Seq: fix.Seq, City: fix.City, Denied: fix.Denied}
	if !fix.Denied {
		lat, lng := fix.Point.Lat, fix.Point.Lng
		dto.Lat, dto.Lng = &lat, &lng
	}
	return dto
}
