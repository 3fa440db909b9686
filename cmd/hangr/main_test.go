package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/hangr/internal/application"
	"github.com/example/hangr/internal/config"
	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/persistence"
	"github.com/example/hangr/internal/testfixtures"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPlanRepositoryAdapter(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	adapter := newPlanRepositoryAdapter(harness.Plans)
	ctx := context.Background()

	public := testfixtures.NewPlanFixture(testfixtures.WithPlanTitle("Cañas en La Latina"))
	private := testfixtures.NewPlanFixture(testfixtures.WithPlanVisibility(application.VisibilityPrivate))
	noCoords := testfixtures.NewPlanFixture(testfixtures.WithoutPlanCoordinates())

	created, err := adapter.CreatePlan(ctx, public.Application())
	if err != nil {
		t.Fatalf("CreatePlan returned error: %v", err)
	}
	if created.Coordinates == nil || created.Coordinates.Lat != 40.4169 || created.City != "Madrid" {
		t.Fatalf("unexpected created plan: %+v", created)
	}
	for _, plan := range []testfixtures.PlanFixture{private, noCoords} {
		if _, err := adapter.CreatePlan(ctx, plan.Application()); err != nil {
			t.Fatalf("CreatePlan(%s) returned error: %v", plan.ID, err)
		}
	}

	stored, err := adapter.GetPlan(ctx, noCoords.ID)
	if err != nil {
		t.Fatalf("GetPlan returned error: %v", err)
	}
	if stored.Coordinates != nil {
		t.Fatalf("expected no coordinates, got %+v", stored.Coordinates)
	}

	plans, err := adapter.ListPlans(ctx, application.PlanQuery{PublicOnly: true})
	if err != nil {
		t.Fatalf("ListPlans returned error: %v", err)
	}
	for _, plan := range plans {
		if plan.ID == private.ID {
			t.Fatalf("private plan listed in public query")
		}
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 public plans, got %d", len(plans))
	}

	if _, err := adapter.GetPlan(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttendeeRepositoryAdapterRejectsSecondJoin(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	plan := testfixtures.NewPlanFixture()
	harness.SeedPlans(t, plan)

	adapter := newAttendeeRepositoryAdapter(harness.Attendees)
	ctx := context.Background()
	joinedAt := testfixtures.ReferenceTime()

	first := application.Attendee{ID: "att-1", PlanID: plan.ID, UserID: "user-1", Handle: "Lucía", JoinedAt: joinedAt}
	if _, err := adapter.AddAttendee(ctx, first); err != nil {
		t.Fatalf("AddAttendee returned error: %v", err)
	}
	second := first
	second.ID = "att-2"
	if _, err := adapter.AddAttendee(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	anonymous := application.Attendee{ID: "att-3", PlanID: plan.ID, Handle: "Anónimo", JoinedAt: joinedAt.Add(time.Minute)}
	if _, err := adapter.AddAttendee(ctx, anonymous); err != nil {
		t.Fatalf("anonymous join returned error: %v", err)
	}

	attendees, err := adapter.ListAttendees(ctx, plan.ID)
	if err != nil {
		t.Fatalf("ListAttendees returned error: %v", err)
	}
	if len(attendees) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(attendees))
	}
	if attendees[0].ID != "att-3" || attendees[0].UserID != "" {
		t.Fatalf("expected the anonymous join first, got %+v", attendees[0])
	}
}

func TestUserStoreAdapter(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	adapter := newUserStoreAdapter(harness.Users)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(testfixtures.WithUserEmail("marta@example.com"))
	if _, err := adapter.CreateUser(ctx, user.Application(), "hash-value"); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	creds, err := adapter.GetUserCredentialsByEmail(ctx, "marta@example.com")
	if err != nil {
		t.Fatalf("GetUserCredentialsByEmail returned error: %v", err)
	}
	if creds.PasswordHash != "hash-value" || creds.User.ID != user.ID {
		t.Fatalf("unexpected credentials: %+v", creds)
	}

	updatedAt := testfixtures.ReferenceTime().Add(time.Hour)
	updated, err := adapter.UpdateDisplayName(ctx, user.ID, "Marta", updatedAt)
	if err != nil {
		t.Fatalf("UpdateDisplayName returned error: %v", err)
	}
	if updated.DisplayName != "Marta" || !updated.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("unexpected updated user: %+v", updated)
	}

	creds, err = adapter.GetUserCredentialsByEmail(ctx, "marta@example.com")
	if err != nil {
		t.Fatalf("GetUserCredentialsByEmail returned error: %v", err)
	}
	if creds.PasswordHash != "hash-value" {
		t.Fatalf("display name update must keep the password hash, got %q", creds.PasswordHash)
	}
}

func TestFilterStateAdapter(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	adapter := newFilterStateAdapter(harness.Filters)
	ctx := context.Background()
	savedAt := testfixtures.ReferenceTime()

	tests := []struct {
		name  string
		state application.FilterState
	}{
		{name: "empty selection", state: application.FilterState{UpdatedAt: savedAt}},
		{name: "emoji and date", state: application.FilterState{Emoji: "🍻", Date: "2026-05-02", UpdatedAt: savedAt}},
		{name: "with location", state: application.FilterState{Emoji: "☕", Location: &geo.Point{Lat: 41.3874, Lng: 2.1686}, UpdatedAt: savedAt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := adapter.SaveFilterState(ctx, "client-1", tt.state); err != nil {
				t.Fatalf("SaveFilterState returned error: %v", err)
			}
			got, err := adapter.LoadFilterState(ctx, "client-1")
			if err != nil {
				t.Fatalf("LoadFilterState returned error: %v", err)
			}
			if got.Emoji != tt.state.Emoji || got.Date != tt.state.Date {
				t.Fatalf("unexpected state: %+v", got)
			}
			if (got.Location == nil) != (tt.state.Location == nil) {
				t.Fatalf("location mismatch: got %+v want %+v", got.Location, tt.state.Location)
			}
			if got.Location != nil && *got.Location != *tt.state.Location {
				t.Fatalf("location mismatch: got %+v want %+v", *got.Location, *tt.state.Location)
			}
		})
	}

	if _, err := adapter.LoadFilterState(ctx, "unknown"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepositoryAdapterRevoke(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	user := testfixtures.NewUserFixture()
	if err := harness.Users.CreateUser(context.Background(), user.Persistence()); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	adapter := newSessionRepositoryAdapter(harness.Sessions)
	ctx := context.Background()
	session := testfixtures.NewSessionFixture(user.ID, testfixtures.WithSessionToken("tok-123"))

	if _, err := adapter.CreateSession(ctx, session.Application()); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	revokedAt := testfixtures.ReferenceTime().Add(5 * time.Minute)
	revoked, err := adapter.RevokeSession(ctx, "tok-123", revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Fatalf("unexpected revoked session: %+v", revoked)
	}
}

func newGeocoderStub(t *testing.T, city string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"address":{"city":"`+city+`"}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T) *httptest.Server {
	t.Helper()
	_, server := newTestAppWithClock(t, time.Now)
	return server
}

func newTestAppWithClock(t *testing.T, now func() time.Time) (*app, *httptest.Server) {
	t.Helper()
	geocoder := newGeocoderStub(t, "Madrid")

	cfg := config.Default()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "hangr.db")
	cfg.TimeZone = "UTC"
	cfg.PublicBaseURL = "https://hangr.test"
	cfg.NominatimURL = geocoder.URL
	cfg.GeolocationTimeout = 2 * time.Second

	app, err := newApp(context.Background(), cfg, now, discardLogger())
	if err != nil {
		t.Fatalf("newApp returned error: %v", err)
	}
	t.Cleanup(app.close)

	server := httptest.NewServer(app.handler)
	t.Cleanup(server.Close)
	return app, server
}

func call(t *testing.T, server *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	return callWithCookies(t, server, method, path, token, body)
}

func callWithCookies(t *testing.T, server *httptest.Server, method, path, token string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, data)
	}
}

func TestAppEndToEnd(t *testing.T) {
	server := newTestApp(t)

	expectStatus(t, call(t, server, http.MethodGet, "/health", "", nil), http.StatusOK)

	expectStatus(t, call(t, server, http.MethodPost, "/users", "", map[string]string{
		"email":        "lucia@example.com",
		"password":     "contraseña-segura",
		"display_name": "Lucía",
	}), http.StatusCreated)

	resp := call(t, server, http.MethodPost, "/sessions", "", map[string]string{
		"email":    "lucia@example.com",
		"password": "contraseña-segura",
	})
	expectStatus(t, resp, http.StatusCreated)
	login := decode[struct {
		Token string `json:"token"`
	}](t, resp)
	if login.Token == "" {
		t.Fatalf("expected a session token")
	}

	expectStatus(t, call(t, server, http.MethodGet, "/me", "", nil), http.StatusUnauthorized)
	expectStatus(t, call(t, server, http.MethodGet, "/me", login.Token, nil), http.StatusOK)

	resp = call(t, server, http.MethodPost, "/plans", login.Token, map[string]any{
		"title":        "Cañas",
		"emoji":        "🍻",
		"scheduled_at": time.Now().Add(3 * time.Hour).UTC().Format(time.RFC3339),
		"lat":          40.4169,
		"lng":          -3.7035,
	})
	expectStatus(t, resp, http.StatusCreated)
	created := decode[struct {
		Plan struct {
			ID   string `json:"id"`
			City string `json:"city"`
			URL  string `json:"url"`
		} `json:"plan"`
	}](t, resp)
	if created.Plan.City != "Madrid" {
		t.Fatalf("expected city resolved to Madrid, got %q", created.Plan.City)
	}
	if created.Plan.URL != "https://hangr.test/plans/"+created.Plan.ID {
		t.Fatalf("unexpected plan url %q", created.Plan.URL)
	}

	resp = call(t, server, http.MethodGet, "/plans?lat=40.42&lng=-3.70", "", nil)
	expectStatus(t, resp, http.StatusOK)
	discovered := decode[struct {
		Plans []struct {
			ID string `json:"id"`
		} `json:"plans"`
	}](t, resp)
	if len(discovered.Plans) != 1 || discovered.Plans[0].ID != created.Plan.ID {
		t.Fatalf("unexpected discovery result: %+v", discovered)
	}

	planPath := "/plans/" + created.Plan.ID
	expectStatus(t, call(t, server, http.MethodPost, planPath+"/attendees", login.Token, nil), http.StatusCreated)
	expectStatus(t, call(t, server, http.MethodPost, planPath+"/attendees", login.Token, nil), http.StatusConflict)

	expectStatus(t, call(t, server, http.MethodPost, planPath+"/chat/messages", login.Token, map[string]string{
		"body": "¿Quién se apunta?",
	}), http.StatusCreated)

	resp = call(t, server, http.MethodGet, planPath+"/chat/messages", "", nil)
	expectStatus(t, resp, http.StatusOK)
	messages := decode[[]struct {
		Body string `json:"body"`
	}](t, resp)
	if len(messages) != 1 || messages[0].Body != "¿Quién se apunta?" {
		t.Fatalf("unexpected messages: %+v", messages)
	}

	resp = call(t, server, http.MethodGet, planPath+"/calendar.ics", "", nil)
	expectStatus(t, resp, http.StatusOK)
	ics, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(ics), "BEGIN:VCALENDAR") {
		t.Fatalf("expected a calendar file, got %q", ics)
	}
}

func TestDiscoverWithoutFiltersKeepsDefaultWindowAcrossDays(t *testing.T) {
	clock := testfixtures.NewClock(time.Date(2026, time.September, 2, 3, 0, 0, 0, time.UTC))
	app, server := newTestAppWithClock(t, clock.NowFunc())
	ctx := context.Background()

	lateLastNight := testfixtures.NewPlanFixture(testfixtures.WithPlanID("late-last-night"), testfixtures.WithPlanScheduledAt(clock.Now().Add(-5*time.Hour)))
	tomorrowEarly := testfixtures.NewPlanFixture(testfixtures.WithPlanID("tomorrow-early"), testfixtures.WithPlanScheduledAt(clock.Now().Add(22*time.Hour)))
	for _, plan := range []testfixtures.PlanFixture{lateLastNight, tomorrowEarly} {
		if err := app.storage.CreatePlan(ctx, plan.Persistence()); err != nil {
			t.Fatalf("seed plan %s: %v", plan.ID, err)
		}
	}

	client := &http.Cookie{Name: "hangr_client", Value: "6f1c2a9e-3b7d-4c55-9a0e-2d8f4b1e7c30"}
	type discovery struct {
		Plans []struct {
			ID string `json:"id"`
		} `json:"plans"`
		Date            string   `json:"date"`
		DateMode        string   `json:"date_mode"`
		DateFilterValid bool     `json:"date_filter_valid"`
		Notices         []string `json:"notices"`
	}
	discover := func() discovery {
		t.Helper()
		resp := callWithCookies(t, server, http.MethodGet, "/plans?lat=40.4169&lng=-3.7035", "", nil, client)
		expectStatus(t, resp, http.StatusOK)
		return decode[discovery](t, resp)
	}
	check := func(day string, got discovery, wantIDs ...string) {
		t.Helper()
		if got.Date != "" || got.DateMode != "default" || !got.DateFilterValid {
			t.Fatalf("%s: expected the default window, got date=%q mode=%q valid=%v", day, got.Date, got.DateMode, got.DateFilterValid)
		}
		for _, notice := range got.Notices {
			if notice == string(application.NoticeInvalidDate) {
				t.Fatalf("%s: unexpected invalid date notice", day)
			}
		}
		if len(got.Plans) != len(wantIDs) {
			t.Fatalf("%s: expected plans %v, got %+v", day, wantIDs, got.Plans)
		}
		for i, id := range wantIDs {
			if got.Plans[i].ID != id {
				t.Fatalf("%s: expected plans %v, got %+v", day, wantIDs, got.Plans)
			}
		}
	}

	check("first visit", discover(), "late-last-night", "tomorrow-early")

	saved, err := newFilterStateAdapter(app.storage).LoadFilterState(ctx, client.Value)
	if err != nil {
		t.Fatalf("LoadFilterState returned error: %v", err)
	}
	if saved.Date != "" {
		t.Fatalf("expected no saved date, got %q", saved.Date)
	}

	clock.Advance(24 * time.Hour)
	check("next day", discover(), "tomorrow-early")
}

func TestServeDrainsInFlightRequestsBeforeReturning(t *testing.T) {
	app, _ := newTestAppWithClock(t, time.Now)

	started := make(chan struct{})
	release := make(chan struct{})
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		if err := app.storage.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	returned := make(chan error, 1)
	go func() { returned <- serve(ctx, server, ln, app, discardLogger()) }()

	statuses := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err != nil {
			statuses <- 0
			return
		}
		_ = resp.Body.Close()
		statuses <- resp.StatusCode
	}()

	<-started
	cancel()
	select {
	case err := <-returned:
		t.Fatalf("serve returned before the request finished: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	if err := <-returned; err != nil {
		t.Fatalf("serve returned error: %v", err)
	}
	if status := <-statuses; status != http.StatusNoContent {
		t.Fatalf("expected the in-flight request to complete against open storage, got status %d", status)
	}
}
