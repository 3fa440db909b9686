package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/hangr/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) ids(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) clock(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// PlanServiceDeps captures dependencies for constructing a plan service.
type PlanServiceDeps struct {
	Plans       application.PlanRepository
	Attendees   application.AttendeeRepository
	Options     application.PlanServiceOptions
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewPlanService builds a plan service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewPlanService(deps PlanServiceDeps) *application.PlanService {
	return application.NewPlanServiceWithLogger(
		deps.Plans,
		deps.Attendees,
		deps.Options,
		f.ids(deps.IDGenerator),
		f.clock(deps.Now),
		deps.Logger,
	)
}

// ChatServiceDeps captures dependencies for constructing a chat service.
type ChatServiceDeps struct {
	Chats       application.ChatRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewChatService builds a chat service using the supplied dependencies.
func (f *ServiceFactory) NewChatService(deps ChatServiceDeps) *application.ChatService {
	return application.NewChatServiceWithLogger(
		deps.Chats,
		f.ids(deps.IDGenerator),
		f.clock(deps.Now),
		deps.Logger,
	)
}

// FilterServiceDeps captures dependencies for constructing a filter service.
type FilterServiceDeps struct {
	Store    application.FilterStateStore
	Catalog  application.EmojiCatalog
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewFilterService builds a filter service using the supplied dependencies.
func (f *ServiceFactory) NewFilterService(deps FilterServiceDeps) *application.FilterService {
	return application.NewFilterService(
		deps.Store,
		deps.Catalog,
		deps.Location,
		f.clock(deps.Now),
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
// Nil password functions fall back to argon2id.
type AuthServiceDeps struct {
	Users          application.UserStore
	Sessions       application.SessionRepository
	HashPassword   application.PasswordHasher
	VerifyPassword application.PasswordVerifier
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	ids := f.ids(deps.IDGenerator)
	token := deps.TokenGenerator
	if token == nil {
		token = ids
	}
	return application.NewAuthServiceWithLogger(
		deps.Users,
		deps.Sessions,
		deps.HashPassword,
		deps.VerifyPassword,
		ids,
		token,
		f.clock(deps.Now),
		deps.SessionTTL,
		deps.Logger,
	)
}
