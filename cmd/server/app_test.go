package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/internal/db"
	"github.com/diewo77/care-meals/internal/events"
	"github.com/diewo77/care-meals/internal/handlers"
	"github.com/diewo77/care-meals/internal/kitchen"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	*App
	db *gorm.DB
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file:app_"+t.Name()+"?mode=memory&cache=shared&_fk=1"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(d))
	require.NoError(t, db.Seed(context.Background(), d, "test", zap.NewNop()))

	auth.SetUserVerifier(userExists(d))
	t.Cleanup(func() {
		auth.SetUserVerifier(nil)
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := zaptest.NewLogger(t)
	rc := handlers.NewRouterConfig(d, events.NopPublisher{}, time.Minute, log)
	return &testApp{App: NewApp(rc, log, []string{"http://localhost:3000"}, false), db: d}
}

// as sends the request with the session cookie of the seeded user with email.
func (a *testApp) as(t *testing.T, email string, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if email != "" {
		var u models.User
		require.NoError(t, a.db.Where("email = ?", email).First(&u).Error)
		r.AddCookie(&http.Cookie{Name: "session", Value: auth.Token(u.ID)})
	}
	w := httptest.NewRecorder()
	a.ServeHTTP(w, r)
	return w
}

func TestHealthz(t *testing.T) {
	app := setupApp(t)

	w := app.as(t, "", httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestUnauthenticated(t *testing.T) {
	app := setupApp(t)

	w := app.as(t, "", httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = app.as(t, "", httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")

	w = app.as(t, "", httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/orders", w.Header().Get("Location"))
}

func TestDeletedUserSessionIsRejected(t *testing.T) {
	app := setupApp(t)

	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: auth.Token(9999)})
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPagesPerRole(t *testing.T) {
	app := setupApp(t)

	tests := []struct {
		email  string
		method string
		target string
		status int
	}{
		{"admin@example.com", http.MethodGet, "/orders", http.StatusOK},
		{"admin@example.com", http.MethodGet, "/users", http.StatusOK},
		{"admin@example.com", http.MethodGet, "/residents/new", http.StatusOK},
		{"caregiver@example.com", http.MethodGet, "/orders/new", http.StatusOK},
		{"caregiver@example.com", http.MethodGet, "/residents", http.StatusOK},
		{"caregiver@example.com", http.MethodGet, "/residents/new", http.StatusForbidden},
		{"kitchen@example.com", http.MethodGet, "/kitchen-dashboard", http.StatusOK},
		{"kitchen@example.com", http.MethodGet, "/orders/new", http.StatusForbidden},
		{"kitchen@example.com", http.MethodGet, "/api/kitchen/summary", http.StatusOK},
		{"kitchen@example.com", http.MethodDelete, "/api/orders/1", http.StatusForbidden},
		{"caregiver@example.com", http.MethodGet, "/api/users/me", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.email+" "+tt.method+" "+tt.target, func(t *testing.T) {
			w := app.as(t, tt.email, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestBearerToken(t *testing.T) {
	app := setupApp(t)
	var u models.User
	require.NoError(t, app.db.Where("email = ?", "kitchen@example.com").First(&u).Error)

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+auth.Token(u.ID))
	w := app.as(t, "", r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kitchen@example.com")
}

func TestLoginFlow(t *testing.T) {
	app := setupApp(t)

	form := url.Values{"email": {"caregiver@example.com"}, "password": {"test"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := app.as(t, "", r)
	require.Equal(t, http.StatusSeeOther, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	require.NotNil(t, session)

	r = httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.AddCookie(session)
	w = app.as(t, "", r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	app := setupApp(t)

	r := httptest.NewRequest(http.MethodOptions, "/api/orders/1", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := app.as(t, "", r)
	assert.Less(t, w.Code, 300)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	r = httptest.NewRequest(http.MethodOptions, "/api/orders/1", nil)
	r.Header.Set("Origin", "http://evil.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w = app.as(t, "", r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLanguageQuerySetsCookie(t *testing.T) {
	app := setupApp(t)

	w := app.as(t, "kitchen@example.com", httptest.NewRequest(http.MethodGet, "/kitchen-dashboard?lang=de", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bestellungen gesamt")

	var lang string
	for _, c := range w.Result().Cookies() {
		if c.Name == "lang" {
			lang = c.Value
		}
	}
	assert.Equal(t, "de", lang)
}

func TestKitchenClientAgainstServer(t *testing.T) {
	app := setupApp(t)
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	ctx := context.Background()

	c := kitchen.NewClient(srv.URL)
	require.NoError(t, c.Login(ctx, "kitchen@example.com", "test"))

	v, err := kitchen.NewBoard(c).Load(ctx, models.Today(), models.MealBreakfast)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Summary.Total)
	assert.Equal(t, 1, v.Summary.Pending)

	var pending models.Order
	require.NoError(t, app.db.Where("meal_type = ? AND status = ?", models.MealBreakfast, models.StatusPending).First(&pending).Error)
	o, err := c.ToggleStatus(ctx, pending.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPrepared, o.Status)

	_, err = c.ToggleStatus(ctx, pending.ID, models.StatusPending)
	var apiErr *kitchen.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "status_conflict", apiErr.Code)
}

func TestRenderView(t *testing.T) {
	v := kitchen.View{
		Date:     "2025-03-01",
		MealType: models.MealLunch,
		Summary:  kitchen.Summary{Total: 4, Pending: 3, Prepared: 1},
		Categories: []kitchen.Card{
			{Category: "soup", Items: []kitchen.Item{{Label: "soup", Count: 2}}},
		},
		Notes: []kitchen.Note{
			{ShortID: "0007", Resident: "Hans Müller", Status: models.StatusPending, Aversions: "No tomatoes"},
		},
	}

	out := renderView(v)
	assert.Contains(t, out, "2025-03-01")
	assert.Contains(t, out, "Total Orders")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "#0007 Hans Müller")
	assert.Contains(t, out, "dislikes: No tomatoes")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestRenderView_NoNotes(t *testing.T) {
	out := renderView(kitchen.View{Date: "2025-03-01", MealType: models.MealDinner})
	assert.NotContains(t, out, "Special Notes")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NotFoundHandler(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, srv, zaptest.NewLogger(t)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
