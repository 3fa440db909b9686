package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/geocode"
	"github.com/example/hangr/internal/ranking"
)

// DefaultChatTTL is how long a plan chat stays open after the plan starts.
const DefaultChatTTL = 12 * time.Hour

// PlanQuery narrows plan listings.
type PlanQuery struct {
	PublicOnly    bool
	ScheduledFrom *time.Time
}

// PlanRepository captures the plan persistence operations needed by the service.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan Plan) (Plan, error)
	GetPlan(ctx context.Context, id string) (Plan, error)
	ListPlans(ctx context.Context, query PlanQuery) ([]Plan, error)
}

// AttendeeRepository captures attendee persistence. AddAttendee reports a
// second join by the same user as a duplicate.
type AttendeeRepository interface {
	AddAttendee(ctx context.Context, attendee Attendee) (Attendee, error)
	ListAttendees(ctx context.Context, planID string) ([]Attendee, error)
}

// ChatOpener creates the chat that accompanies a new plan.
type ChatOpener interface {
	CreateChat(ctx context.Context, chat Chat) (Chat, error)
}

// PlanServiceOptions carries the optional collaborators of a PlanService.
type PlanServiceOptions struct {
	Chats          ChatOpener
	Filters        FilterStateStore
	Resolver       geocode.Resolver
	Catalog        EmojiCatalog
	Location       *time.Location
	GeocodeTimeout time.Duration
	ChatTTL        time.Duration
}

// PlanService creates, lists and ranks plans and manages attendance.
type PlanService struct {
	plans       PlanRepository
	attendees   AttendeeRepository
	chats       ChatOpener
	filters     FilterStateStore
	resolver    geocode.Resolver
	catalog     EmojiCatalog
	location    *time.Location
	geoTimeout  time.Duration
	chatTTL     time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPlanService constructs a plan service with the provided dependencies.
func NewPlanService(plans PlanRepository, attendees AttendeeRepository, opts PlanServiceOptions, idGenerator func() string, now func() time.Time) *PlanService {
	return NewPlanServiceWithLogger(plans, attendees, opts, idGenerator, now, nil)
}

// NewPlanServiceWithLogger constructs a plan service with a specified logger.
func NewPlanServiceWithLogger(plans PlanRepository, attendees AttendeeRepository, opts PlanServiceOptions, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PlanService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ChatTTL <= 0 {
		opts.ChatTTL = DefaultChatTTL
	}
	if opts.GeocodeTimeout <= 0 {
		opts.GeocodeTimeout = geocode.DefaultTimeout
	}
	if len(opts.Catalog.emojis) == 0 {
		opts.Catalog = NewEmojiCatalog(nil)
	}
	return &PlanService{
		plans:       plans,
		attendees:   attendees,
		chats:       opts.Chats,
		filters:     opts.Filters,
		resolver:    opts.Resolver,
		catalog:     opts.Catalog,
		location:    opts.Location,
		geoTimeout:  opts.GeocodeTimeout,
		chatTTL:     opts.ChatTTL,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PlanService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PlanService", operation, attrs...)
}

// Catalog returns the emoji catalog used for validation.
func (s *PlanService) Catalog() EmojiCatalog {
	return s.catalog
}

// CreatePlan validates input, resolves the plan city and stores the plan
// together with its chat. A chat failure leaves the plan in place and is
// reported as a warning.
func (s *PlanService) CreatePlan(ctx context.Context, params CreatePlanParams) (result CreatePlanResult, err error) {
	if s == nil {
		err = fmt.Errorf("PlanService is nil")
		return
	}
	if s.plans == nil {
		err = fmt.Errorf("plan repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreatePlan")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create plan", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("plan_id", result.Plan.ID, "warnings", len(result.Warnings)).InfoContext(ctx, "plan created")
	}()

	now := s.now()
	plan, vErr := s.normalizePlanInput(params, now)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if plan.Coordinates != nil {
		plan.City = geocode.BestEffort(ctx, s.resolver, *plan.Coordinates, s.geoTimeout)
	}
	if plan.Place == "" && plan.Coordinates != nil {
		plan.Place = plan.City
		if plan.Place == "" {
			plan.Place = ApproximatePlace
		}
	}

	plan.ID = s.idGenerator()
	plan.CreatedAt = now

	var persisted Plan
	persisted, err = s.plans.CreatePlan(ctx, plan)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	result.Plan = persisted

	if s.chats != nil {
		chat := Chat{PlanID: persisted.ID, ExpiresAt: persisted.ScheduledAt.Add(s.chatTTL), CreatedAt: now}
		if _, chatErr := s.chats.CreateChat(ctx, chat); chatErr != nil {
			logger.WarnContext(ctx, "plan chat not created", "plan_id", persisted.ID, "error", chatErr)
			result.Warnings = append(result.Warnings, "chat_unavailable")
		}
	}
	return
}

func (s *PlanService) normalizePlanInput(params CreatePlanParams, now time.Time) (Plan, *ValidationError) {
	vErr := &ValidationError{}

	title := cleanLine(params.Title)
	switch {
	case title == "":
		vErr.add("title", "required")
	case tooLong(title, MaxTitleLength):
		vErr.add("title", "too_long")
	}

	emoji := params.Emoji
	if emoji == "" {
		emoji = DefaultEmoji
	}
	if !s.catalog.Contains(emoji) {
		vErr.add("emoji", "unknown")
	}

	if params.ScheduledAt.IsZero() {
		vErr.add("scheduled_at", "required")
	} else if params.ScheduledAt.Before(now.Truncate(time.Minute)) {
		vErr.add("scheduled_at", "in_past")
	}

	place := cleanLine(params.Place)
	if tooLong(place, MaxPlaceLength) {
		vErr.add("place", "too_long")
	}

	var coords *geo.Point
	if params.Coordinates != nil {
		if !params.Coordinates.Valid() {
			vErr.add("coordinates", "out_of_range")
		} else {
			p := *params.Coordinates
			coords = &p
		}
	}

	visibility := params.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	switch visibility {
	case VisibilityPublic, VisibilityLink, VisibilityPrivate:
	default:
		vErr.add("visibility", "unknown")
	}

	var creator string
	if params.Principal != nil {
		creator = params.Principal.UserID
	}

	return Plan{
		Title:       title,
		Emoji:       emoji,
		ScheduledAt: params.ScheduledAt.UTC(),
		Place:       place,
		Coordinates: coords,
		CreatorID:   creator,
		Visibility:  visibility,
	}, vErr
}

// GetPlan returns a single plan with its attendee count.
func (s *PlanService) GetPlan(ctx context.Context, id string) (Plan, error) {
	if s == nil || s.plans == nil {
		return Plan{}, fmt.Errorf("plan repository not configured")
	}
	plan, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetPlan", "plan_id", id).ErrorContext(ctx, "failed to load plan", "error", err, "error_kind", ErrorKind(err))
		}
		return Plan{}, err
	}
	return plan, nil
}

// ListPlans returns every public plan ordered by scheduled instant.
func (s *PlanService) ListPlans(ctx context.Context) ([]Plan, error) {
	if s == nil || s.plans == nil {
		return nil, fmt.Errorf("plan repository not configured")
	}
	plans, err := s.plans.ListPlans(ctx, PlanQuery{PublicOnly: true})
	if err != nil {
		s.loggerWith(ctx, "ListPlans").ErrorContext(ctx, "failed to list plans", "error", err)
		return nil, mapRepoError(err)
	}
	return plans, nil
}

// DiscoverPlans fetches plans and the viewer city concurrently and ranks the
// plans for the viewer. Store and geocoding failures degrade the result with
// notices instead of failing the request.
func (s *PlanService) DiscoverPlans(ctx context.Context, params DiscoverParams) (DiscoverResult, error) {
	if s == nil || s.plans == nil {
		return DiscoverResult{}, fmt.Errorf("plan repository not configured")
	}

	logger := s.loggerWith(ctx, "DiscoverPlans",
		"has_location", params.Location != nil,
		"emoji", params.Emoji,
		"date", params.Date,
	)

	now := s.now()
	cutoff := now.Add(-ranking.StaleAfter)
	location := params.Location
	if location != nil && !location.Valid() {
		location = nil
	}

	var (
		plans    []Plan
		fetchErr error
		city     = params.City
		g        errgroup.Group
	)
	g.Go(func() error {
		plans, fetchErr = s.plans.ListPlans(ctx, PlanQuery{PublicOnly: true, ScheduledFrom: &cutoff})
		return nil
	})
	if location != nil && city == "" && s.resolver != nil {
		g.Go(func() error {
			city = geocode.BestEffort(ctx, s.resolver, *location, s.geoTimeout)
			return nil
		})
	}
	_ = g.Wait()

	result := DiscoverResult{City: city}
	if fetchErr != nil {
		logger.ErrorContext(ctx, "failed to fetch plans", "error", fetchErr, "error_kind", ErrorKind(fetchErr))
		result.Notices = append(result.Notices, NoticePlansUnavailable)
		plans = nil
	}
	if location == nil {
		result.Notices = append(result.Notices, NoticeLocationUnavailable)
	}

	if params.RadiusKm > 0 && location != nil {
		plans = withinRadius(plans, *location, params.RadiusKm)
	}

	ranked := ranking.Rank(toRankingPlans(plans), ranking.Criteria{
		UserLocation: location,
		UserCity:     city,
		Emoji:        params.Emoji,
		Date:         params.Date,
		Now:          now,
		Location:     s.location,
	})
	result.Plans = ranked.Plans
	result.Window = ranked.Window
	result.DateFilterValid = ranked.DateFilterValid()
	if !result.DateFilterValid {
		result.Notices = append(result.Notices, NoticeInvalidDate)
	}

	if params.ClientKey != "" && s.filters != nil {
		state := FilterState{Emoji: params.Emoji, Date: params.Date, Location: location, UpdatedAt: now}
		if err := s.filters.SaveFilterState(ctx, params.ClientKey, state); err != nil {
			logger.WarnContext(ctx, "failed to save filter state", "error", err)
		}
	}

	logger.DebugContext(ctx, "plans discovered", "count", len(result.Plans), "notices", len(result.Notices))
	return result, nil
}

func withinRadius(plans []Plan, center geo.Point, radiusKm float64) []Plan {
	index := geo.NewIndex()
	for _, p := range plans {
		if p.Coordinates != nil {
			index.Insert(p.ID, *p.Coordinates)
		}
	}
	hits := index.Within(center, radiusKm)
	kept := make([]Plan, 0, len(hits))
	for _, p := range plans {
		if _, ok := hits[p.ID]; ok {
			kept = append(kept, p)
		}
	}
	return kept
}

func toRankingPlans(plans []Plan) []ranking.Plan {
	out := make([]ranking.Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, ranking.Plan{
			ID:            p.ID,
			Title:         p.Title,
			Emoji:         p.Emoji,
			ScheduledAt:   p.ScheduledAt,
			Place:         p.Place,
			Coordinates:   p.Coordinates,
			City:          p.City,
			AttendeeCount: p.AttendeeCount,
		})
	}
	return out
}

// JoinPlan adds the caller to the attendee list of a plan.
func (s *PlanService) JoinPlan(ctx context.Context, params JoinPlanParams) (attendee Attendee, err error) {
	if s == nil || s.plans == nil || s.attendees == nil {
		err = fmt.Errorf("plan repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "JoinPlan", "plan_id", params.PlanID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to join plan", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("attendee_id", attendee.ID).InfoContext(ctx, "plan joined")
	}()

	if _, err = s.plans.GetPlan(ctx, params.PlanID); err != nil {
		err = mapRepoError(err)
		return
	}

	attendee = Attendee{
		ID:       s.idGenerator(),
		PlanID:   params.PlanID,
		Handle:   handleFor(params.Handle, params.Principal),
		JoinedAt: s.now(),
	}
	if params.Principal != nil {
		attendee.UserID = params.Principal.UserID
	}

	attendee, err = s.attendees.AddAttendee(ctx, attendee)
	if err = mapRepoError(err); errors.Is(err, ErrAlreadyExists) {
		err = ErrAlreadyJoined
	}
	return
}

// ListAttendees returns the attendees of a plan, most recent first.
func (s *PlanService) ListAttendees(ctx context.Context, planID string) ([]Attendee, error) {
	if s == nil || s.plans == nil || s.attendees == nil {
		return nil, fmt.Errorf("plan repositories not configured")
	}
	if _, err := s.plans.GetPlan(ctx, planID); err != nil {
		return nil, mapRepoError(err)
	}
	attendees, err := s.attendees.ListAttendees(ctx, planID)
	if err != nil {
		s.loggerWith(ctx, "ListAttendees", "plan_id", planID).ErrorContext(ctx, "failed to list attendees", "error", err)
		return nil, mapRepoError(err)
	}
	return attendees, nil
}
