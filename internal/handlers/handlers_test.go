package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/internal/db"
	"github.com/diewo77/care-meals/internal/events"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerEnv struct {
	db *gorm.DB
	rc *RouterConfig

	admin, caregiver, kitchen models.User
}

func setupHandlers(t *testing.T) *handlerEnv {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_fk=1"
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(d))
	require.NoError(t, db.Seed(context.Background(), d, "test", zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})

	e := &handlerEnv{db: d, rc: NewRouterConfig(d, events.NopPublisher{}, time.Minute, zaptest.NewLogger(t))}
	for role, u := range map[models.Role]*models.User{
		models.RoleAdmin:     &e.admin,
		models.RoleCaregiver: &e.caregiver,
		models.RoleKitchen:   &e.kitchen,
	} {
		require.NoError(t, d.Where("role = ?", role).First(u).Error)
	}
	return e
}

// request builds a request on behalf of u; a zero user sends no session.
func request(method, target string, body io.Reader, u models.User) *http.Request {
	r := httptest.NewRequest(method, target, body)
	if u.ID != 0 {
		r = r.WithContext(auth.WithUserID(r.Context(), u.ID))
	}
	return r
}

func jsonRequest(method, target, body string, u models.User) *http.Request {
	r := request(method, target, strings.NewReader(body), u)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func formRequest(method, target string, form url.Values, u models.User) *http.Request {
	r := request(method, target, strings.NewReader(form.Encode()), u)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func withID(r *http.Request, id uint) *http.Request {
	r.SetPathValue("id", strconv.FormatUint(uint64(id), 10))
	return r
}

func (e *handlerEnv) order(t *testing.T, meal models.MealType) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, e.db.Where("meal_type = ?", meal).Order("id").First(&o).Error)
	return o
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func flashValue(w *httptest.ResponseRecorder) string {
	for _, c := range w.Result().Cookies() {
		if c.Name == flashCookie {
			return c.Value
		}
	}
	return ""
}
