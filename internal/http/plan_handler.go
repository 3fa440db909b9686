package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/hangr/internal/application"
	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/location"
	"github.com/example/hangr/internal/ranking"
)

type planService interface {
	CreatePlan(ctx context.Context, params application.CreatePlanParams) (application.CreatePlanResult, error)
	GetPlan(ctx context.Context, id string) (application.Plan, error)
	DiscoverPlans(ctx context.Context, params application.DiscoverParams) (application.DiscoverResult, error)
	JoinPlan(ctx context.Context, params application.JoinPlanParams) (application.Attendee, error)
	ListAttendees(ctx context.Context, planID string) ([]application.Attendee, error)
	Catalog() application.EmojiCatalog
}

type shareService interface {
	StoryImage(ctx context.Context, planID, planURL string, width int) ([]byte, error)
	Calendar(ctx context.Context, planID, planURL string) ([]byte, error)
}

type filterLoader interface {
	Restore(ctx context.Context, clientKey string) (application.FilterState, error)
}

type fixSource interface {
	Current(key string) (location.Fix, bool)
}

// PlanHandlerConfig wires the collaborators of PlanHandler. Only Plans is required.
type PlanHandlerConfig struct {
	Plans   planService
	Share   shareService
	Filters filterLoader
	Fixes   fixSource
	// BaseURL is the public origin used for links in share images and calendar files.
	BaseURL  string
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// PlanHandler serves plan discovery, creation, attendance and sharing.
type PlanHandler struct {
	plans     planService
	share     shareService
	filters   filterLoader
	fixes     fixSource
	baseURL   string
	location  *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewPlanHandler(cfg PlanHandlerConfig) *PlanHandler {
	base := defaultLogger(cfg.Logger)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &PlanHandler{
		plans:     cfg.Plans,
		share:     cfg.Share,
		filters:   cfg.Filters,
		fixes:     cfg.Fixes,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		location:  cfg.Location,
		now:       cfg.Now,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *PlanHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "PlanHandler", operation, attrs...)
}

func (h *PlanHandler) planURL(id string) string {
	return h.baseURL + "/plans/" + url.PathEscape(id)
}

// Discover handles GET /plans.
func (h *PlanHandler) Discover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	clientKey := ClientKeyFromContext(ctx)

	params := application.DiscoverParams{
		ClientKey: clientKey,
		Emoji:     strings.TrimSpace(query.Get("emoji")),
		Date:      strings.TrimSpace(query.Get("date")),
	}

	point, err := parsePoint(query.Get("lat"), query.Get("lng"))
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	if raw := strings.TrimSpace(query.Get("radius_km")); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		params.RadiusKm = radius
	}

	if point == nil && h.fixes != nil && clientKey != "" {
		if fix, ok := h.fixes.Current(clientKey); ok && !fix.Denied {
			p := fix.Point
			point = &p
			params.City = fix.City
		}
	}
	params.Location = point

	// Without explicit filters the client's last selection is restored as it
	// was chosen; an unset date keeps the default window.
	if h.filters != nil && clientKey != "" && !query.Has("emoji") && !query.Has("date") {
		if saved, err := h.filters.Restore(ctx, clientKey); err == nil {
			params.Emoji = saved.Emoji
			params.Date = saved.Date
			if params.Location == nil {
				params.Location = saved.Location
			}
		} else {
			h.log(ctx, "Discover").WarnContext(ctx, "failed to load saved filters", "error", err)
		}
	}

	result, err := h.plans.DiscoverPlans(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	now := h.now()
	resp := discoverResponse{
		Plans:           make([]rankedPlanDTO, 0, len(result.Plans)),
		City:            result.City,
		Date:            params.Date,
		DateMode:        string(result.Window.Mode),
		DateFilterValid: result.DateFilterValid,
		Notices:         make([]string, 0, len(result.Notices)),
	}
	for _, ranked := range result.Plans {
		resp.Plans = append(resp.Plans, h.toRankedPlanDTO(ranked, now))
	}
	for _, notice := range result.Notices {
		resp.Notices = append(resp.Notices, string(notice))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, resp)
}

// Create handles POST /plans.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "Create", "error_kind", "bad_request").WarnContext(ctx, "failed to decode plan request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	fieldErrors := map[string]string{}
	scheduledAt, ok := h.parseScheduledAt(req.ScheduledAt)
	if !ok {
		fieldErrors["scheduled_at"] = "invalid"
	}
	var coords *geo.Point
	switch {
	case req.Lat != nil && req.Lng != nil:
		coords = &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	case req.Lat != nil || req.Lng != nil:
		fieldErrors["coordinates"] = "invalid"
	}
	if len(fieldErrors) > 0 {
		h.responder.handleServiceError(ctx, w, &application.ValidationError{FieldErrors: fieldErrors})
		return
	}

	result, err := h.plans.CreatePlan(ctx, application.CreatePlanParams{
		Principal:   principalPtr(ctx),
		Title:       req.Title,
		Emoji:       req.Emoji,
		ScheduledAt: scheduledAt,
		Place:       req.Place,
		Coordinates: coords,
		Visibility:  req.Visibility,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Location", "/plans/"+url.PathEscape(result.Plan.ID))
	h.responder.writeJSON(ctx, w, http.StatusCreated, createPlanResponse{
		Plan:     h.toPlanDTO(result.Plan, h.now()),
		Warnings: result.Warnings,
	})
}

// parseScheduledAt accepts RFC 3339 instants and local "YYYY-MM-DDTHH:MM"
// values as sent by datetime-local inputs.
func (h *PlanHandler) parseScheduledAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", raw, h.location); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Get handles GET /plans/{id}.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toPlanDTO(plan, h.now()))
}

// ListAttendees handles GET /plans/{id}/attendees.
func (h *PlanHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	attendees, err := h.plans.ListAttendees(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	now := h.now()
	resp := make([]attendeeDTO, 0, len(attendees))
	for _, a := range attendees {
		resp = append(resp, toAttendeeDTO(a, now))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Join handles POST /plans/{id}/attendees.
func (h *PlanHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req joinPlanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	attendee, err := h.plans.JoinPlan(ctx, application.JoinPlanParams{
		Principal: principalPtr(ctx),
		PlanID:    r.PathValue("id"),
		Handle:    req.Handle,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, toAttendeeDTO(attendee, h.now()))
}

// ShareImage handles GET /plans/{id}/share.png. ?width=150 returns the preview.
func (h *PlanHandler) ShareImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.share == nil {
		h.responder.handleServiceError(ctx, w, application.ErrNotFound)
		return
	}

	width := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("width")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		width = n
	}

	id := r.PathValue("id")
	data, err := h.share.StoryImage(ctx, id, h.planURL(id), width)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=600")
	h.responder.writeBytes(w, "image/png", "", data)
}

// CalendarFile handles GET /plans/{id}/calendar.ics.
func (h *PlanHandler) CalendarFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.share == nil {
		h.responder.handleServiceError(ctx, w, application.ErrNotFound)
		return
	}

	id := r.PathValue("id")
	data, err := h.share.Calendar(ctx, id, h.planURL(id))
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeBytes(w, "text/calendar; charset=utf-8", "plan-"+id+".ics", data)
}

// Emojis handles GET /emojis.
func (h *PlanHandler) Emojis(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, emojisResponse{
		Emojis:  h.plans.Catalog().List(),
		Default: application.DefaultEmoji,
	})
}

// parsePoint reads an optional lat/lng pair. Both or neither must be present.
func parsePoint(rawLat, rawLng string) (*geo.Point, error) {
	rawLat, rawLng = strings.TrimSpace(rawLat), strings.TrimSpace(rawLng)
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, errInvalidQuery
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, errInvalidQuery
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, errInvalidQuery
	}
	p := geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return nil, errInvalidQuery
	}
	return &p, nil
}

type createPlanRequest struct {
	Title       string   `json:"title"`
	Emoji       string   `json:"emoji"`
	ScheduledAt string   `json:"scheduled_at"`
	Place       string   `json:"place"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Visibility  string   `json:"visibility"`
}

type joinPlanRequest struct {
	Handle string `json:"handle"`
}

type coordinatesDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type planDTO struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Emoji          string          `json:"emoji"`
	ScheduledAt    string          `json:"scheduled_at"`
	WhenLabel      string          `json:"when_label"`
	Place          string          `json:"place"`
	City           string          `json:"city,omitempty"`
	Coordinates    *coordinatesDTO `json:"coordinates,omitempty"`
	Visibility     string          `json:"visibility,omitempty"`
	AttendeeCount  int             `json:"attendee_count"`
	AttendeesLabel string          `json:"attendees_label"`
	URL            string          `json:"url"`
}

type rankedPlanDTO struct {
	planDTO
	DistanceKm    *float64 `json:"distance_km"`
	DistanceLabel string   `json:"distance_label,omitempty"`
	SameCity      bool     `json:"same_city"`
}

type createPlanResponse struct {
	Plan     planDTO  `json:"plan"`
	Warnings []string `json:"warnings,omitempty"`
}

type discoverResponse struct {
	Plans           []rankedPlanDTO `json:"plans"`
	City            string          `json:"city,omitempty"`
	Date            string          `json:"date,omitempty"`
	DateMode        string          `json:"date_mode"`
	DateFilterValid bool            `json:"date_filter_valid"`
	Notices         []string        `json:"notices"`
}

type attendeeDTO struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	JoinedAt    string `json:"joined_at"`
	JoinedLabel string `json:"joined_label"`
}

type emojisResponse struct {
	Emojis  []string `json:"emojis"`
	Default string   `json:"default"`
}

func (h *PlanHandler) toPlanDTO(plan application.Plan, now time.Time) planDTO {
	dto := planDTO{
		ID:             plan.ID,
		Title:          plan.Title,
		Emoji:          plan.Emoji,
		ScheduledAt:    plan.ScheduledAt.In(h.location).Format(time.RFC3339),
		WhenLabel:      relativeLabel(plan.ScheduledAt, now),
		Place:          plan.Place,
		City:           plan.City,
		Visibility:     plan.Visibility,
		AttendeeCount:  plan.AttendeeCount,
		AttendeesLabel: attendeeLabel(plan.AttendeeCount),
		URL:            h.planURL(plan.ID),
	}
	if plan.Coordinates != nil {
		dto.Coordinates = &coordinatesDTO{Lat: plan.Coordinates.Lat, Lng: plan.Coordinates.Lng}
	}
	return dto
}

func (h *PlanHandler) toRankedPlanDTO(r ranking.Ranked, now time.Time) rankedPlanDTO {
	dto := rankedPlanDTO{
		planDTO: h.toPlanDTO(application.Plan{
			ID:            r.ID,
			Title:         r.Title,
			Emoji:         r.Emoji,
			ScheduledAt:   r.ScheduledAt,
			Place:         r.Place,
			Coordinates:   r.Coordinates,
			City:          r.City,
			AttendeeCount: r.AttendeeCount,
		}, now),
		SameCity: r.SameCity,
	}
	if r.HasDistance() {
		km := r.DistanceKm
		dto.DistanceKm = &km
		dto.DistanceLabel = distanceLabel(km)
	}
	return dto
}

func toAttendeeDTO(a application.Attendee, now time.Time) attendeeDTO {
	return attendeeDTO{
		ID:          a.ID,
		Handle:      a.Handle,
		JoinedAt:    a.JoinedAt.UTC().Format(time.RFC3339),
		JoinedLabel: relativeLabel(a.JoinedAt, now),
	}
}
