package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/hangr/internal/application"
	"github.com/example/hangr/internal/config"
	"github.com/example/hangr/internal/geocode"
	httptransport "github.com/example/hangr/internal/http"
	"github.com/example/hangr/internal/jobs"
	"github.com/example/hangr/internal/location"
	"github.com/example/hangr/internal/logging"
	"github.com/example/hangr/internal/persistence/sqlite"
	"github.com/example/hangr/internal/persistence/sqlite/migration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("hangr exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, time.Now, logger)
	if err != nil {
		return err
	}
	defer app.close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return serve(ctx, server, ln, app, logger)
}

// serve runs server until ctx is cancelled. In-flight requests and jobs are
// drained before serve returns, so the caller may close storage afterwards.
func serve(ctx context.Context, server *http.Server, ln net.Listener, app *app, logger *slog.Logger) error {
	app.jobs.Start()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
		if err := app.jobs.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop jobs", "error", err)
		}
	}()

	logger.Info("hangr API listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(fmt.Errorf("serve: %w", err), app.jobs.Stop(context.Background()))
	}
	<-drained
	return nil
}

// app holds the wired service graph.
type app struct {
	handler http.Handler
	storage *sqlite.Storage
	tracker *location.Tracker
	jobs    *jobs.Scheduler
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, now func() time.Time, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}

	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx, logger); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }

	resolver := newResolver(cfg)
	tracker := location.NewTracker(location.Options{
		HighAccuracy: true,
		Timeout:      cfg.GeolocationTimeout,
		MaximumAge:   cfg.GeolocationMaxAge,
		MaxClients:   cfg.LocationMaxClients,
		IdleTTL:      cfg.LocationIdleTTL,
	}, now)
	catalog := application.NewEmojiCatalog(cfg.Emojis)

	planRepo := newPlanRepositoryAdapter(storage)
	chatRepo := newChatRepositoryAdapter(storage)
	filterStore := newFilterStateAdapter(storage)

	filterService := application.NewFilterService(filterStore, catalog, loc, now, logger)
	planService := application.NewPlanServiceWithLogger(planRepo, newAttendeeRepositoryAdapter(storage), application.PlanServiceOptions{
		Chats:          chatRepo,
		Filters:        filterStore,
		Resolver:       resolver,
		Catalog:        catalog,
		Location:       loc,
		GeocodeTimeout: cfg.GeolocationTimeout,
		ChatTTL:        cfg.ChatTTL,
	}, idGenerator, now, logger)
	chatService := application.NewChatServiceWithLogger(chatRepo, idGenerator, now, logger)
	shareService := application.NewShareService(planRepo, chatRepo, loc, now, logger)
	authService := application.NewAuthServiceWithLogger(newUserStoreAdapter(storage), newSessionRepositoryAdapter(storage), nil, nil, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)

	scheduler, err := jobs.New(ctx, logger,
		jobs.Job{Name: "purge-expired-chats", Schedule: cfg.ChatPurgeSchedule, Run: chatService.PurgeExpired},
		jobs.Job{Name: "purge-expired-sessions", Schedule: cfg.SessionPurgeSchedule, Run: authService.PurgeExpiredSessions},
		jobs.Job{Name: "prune-idle-locations", Schedule: cfg.LocationPruneSchedule, Run: tracker.Prune},
	)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("schedule jobs: %w", err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth: httptransport.NewAuthHandler(authService, logger),
		Plans: httptransport.NewPlanHandler(httptransport.PlanHandlerConfig{
			Plans:    planService,
			Share:    shareService,
			Filters:  filterService,
			Fixes:    tracker,
			BaseURL:  cfg.PublicBaseURL,
			Location: loc,
			Now:      now,
			Logger:   logger,
		}),
		Chats:    httptransport.NewChatHandler(chatService, now, logger),
		Filters:  httptransport.NewFilterHandler(filterService, logger),
		Location: httptransport.NewLocationHandler(tracker, resolver, logger),
		Sessions: authService,
		Health:   storage.Ping,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.ClientSession(now),
			httptransport.OptionalSession(authService, logger),
		},
		Logger: logger,
	})

	return &app{
		handler: router,
		storage: storage,
		tracker: tracker,
		jobs:    scheduler,
		logger:  logger,
	}, nil
}

func (a *app) close() {
	a.tracker.Wait()
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

// newResolver prefers Geoapify when a key is configured and always falls
// back to Nominatim. Results are cached per rounded coordinate.
func newResolver(cfg config.Config) geocode.Resolver {
	var chain geocode.Chain
	if cfg.GeoapifyAPIKey != "" {
		chain = append(chain, geocode.NewGeoapifyClient(cfg.GeoapifyAPIKey, "", cfg.GeolocationTimeout))
	}
	chain = append(chain, geocode.NewNominatimClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeolocationTimeout))
	return geocode.NewCached(chain, cfg.GeocodeCacheSize, cfg.GeocodeCacheTTL)
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
