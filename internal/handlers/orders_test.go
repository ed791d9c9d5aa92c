package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/services"
	"github.com/diewo77/care-meals/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	logged := request(http.MethodGet, "/", nil, models.User{ID: 1})

	tests := []struct {
		name   string
		r      *http.Request
		err    error
		status int
		code   string
	}{
		{"validation", logged, &services.ValidationError{Violations: validation.Violations{"date": "required"}}, 400, "validation_failed"},
		{"denied without session", anon, gate.ErrUnauthorized, 401, "unauthorized"},
		{"denied with session", logged, fmt.Errorf("wrap: %w", gate.ErrUnauthorized), 403, "forbidden"},
		{"no policy", logged, gate.ErrNoPolicyDefined, 403, "forbidden"},
		{"credentials", anon, services.ErrInvalidCredentials, 401, "invalid_credentials"},
		{"not found", logged, services.ErrNotFound, 404, "not_found"},
		{"stale status", logged, services.ErrStatusConflict, 409, "status_conflict"},
		{"in use", logged, services.ErrInUse, 409, "in_use"},
		{"duplicate", logged, services.ErrDuplicate, 409, "duplicate"},
		{"self delete", logged, services.ErrSelfDelete, 400, "self_delete"},
		{"other", logged, errors.New("boom"), 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusOf(tt.r, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestOrderAPI_List(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.OrderHandler

	w := httptest.NewRecorder()
	h.APIList(w, request(http.MethodGet, "/api/orders?where[mealType][equals]=breakfast&limit=2", nil, e.kitchen))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page httpx.ListResponse[models.Order]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.TotalDocs)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Docs, 2)
	assert.Equal(t, models.MealBreakfast, page.Docs[0].MealType)
	require.NotNil(t, page.Docs[0].Resident)
}

func TestOrderAPI_ListRejectsUnknownFilter(t *testing.T) {
	e := setupHandlers(t)

	w := httptest.NewRecorder()
	e.rc.OrderHandler.APIList(w, request(http.MethodGet, "/api/orders?where[room][equals]=101", nil, e.admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_query", decodeError(t, w))
}

func TestOrderAPI_RequiresSession(t *testing.T) {
	e := setupHandlers(t)

	w := httptest.NewRecorder()
	e.rc.OrderHandler.APIList(w, request(http.MethodGet, "/api/orders", nil, models.User{}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderAPI_KitchenMayOnlyChangeStatus(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.OrderHandler
	o := e.order(t, models.MealLunch)

	w := httptest.NewRecorder()
	h.APIUpdate(w, withID(jsonRequest(http.MethodPatch, "/api/orders/x", `{"status":"prepared"}`, e.kitchen), o.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusPrepared, got.Status)

	w = httptest.NewRecorder()
	h.APIUpdate(w, withID(jsonRequest(http.MethodPatch, "/api/orders/x", `{"date":"2024-01-01"}`, e.kitchen), o.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w))

	var stored models.Order
	require.NoError(t, e.db.First(&stored, o.ID).Error)
	assert.Equal(t, o.Date.UTC(), stored.Date.UTC())
}

func TestOrderAPI_CreateAndDelete(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.OrderHandler
	var res models.Resident
	require.NoError(t, e.db.Order("id").First(&res).Error)

	body := fmt.Sprintf(`{"date":"2030-05-01","mealType":"dinner","resident":%d,"dinner":{"soup":true,"bread":["crispbread"]}}`, res.ID)

	w := httptest.NewRecorder()
	h.APICreate(w, jsonRequest(http.MethodPost, "/api/orders", body, e.kitchen))
	assert.Equal(t, http.StatusForbidden, w.Code, "kitchen cannot create orders")

	w = httptest.NewRecorder()
	h.APICreate(w, jsonRequest(http.MethodPost, "/api/orders", body, e.caregiver))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPending, created.Status)

	w = httptest.NewRecorder()
	h.APIDelete(w, withID(request(http.MethodDelete, "/api/orders/x", nil, e.caregiver), created.ID))
	assert.Equal(t, http.StatusForbidden, w.Code, "caregiver cannot delete orders")

	w = httptest.NewRecorder()
	h.APIDelete(w, withID(request(http.MethodDelete, "/api/orders/x", nil, e.admin), created.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d}`, created.ID), w.Body.String())

	w = httptest.NewRecorder()
	h.APIGet(w, withID(request(http.MethodGet, "/api/orders/x", nil, e.admin), created.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderAPI_CreateValidation(t *testing.T) {
	e := setupHandlers(t)

	w := httptest.NewRecorder()
	e.rc.OrderHandler.APICreate(w, jsonRequest(http.MethodPost, "/api/orders", `{"mealType":"brunch","resident":999}`, e.admin))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error   string                `json:"error"`
		Details validation.Violations `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, "required", body.Details["date"])
	assert.Equal(t, "invalid_option", body.Details["mealType"])
}

func TestOrderAPI_Toggle(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.OrderHandler
	o := e.order(t, models.MealLunch)
	require.Equal(t, models.StatusPending, o.Status)

	w := httptest.NewRecorder()
	h.APIToggle(w, withID(jsonRequest(http.MethodPost, "/api/orders/x/toggle", `{"status":"pending"}`, e.kitchen), o.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// a second client still showing "pending" must not flip it back
	w = httptest.NewRecorder()
	h.APIToggle(w, withID(jsonRequest(http.MethodPost, "/api/orders/x/toggle", `{"status":"pending"}`, e.kitchen), o.ID))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "status_conflict", decodeError(t, w))

	var stored models.Order
	require.NoError(t, e.db.First(&stored, o.ID).Error)
	assert.Equal(t, models.StatusPrepared, stored.Status)
}

func TestOrderHTML_ToggleStatusRedirectsWithFlash(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.OrderHandler
	o := e.order(t, models.MealLunch)

	form := url.Values{"displayed": {"pending"}, "back": {"/orders?mealType=lunch"}}
	w := httptest.NewRecorder()
	h.ToggleStatus(w, withID(formRequest(http.MethodPost, "/orders/x/status", form, e.kitchen), o.ID))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/orders?mealType=lunch", w.Header().Get("Location"))
	assert.Equal(t, "status.updated", flashValue(w))

	w = httptest.NewRecorder()
	h.ToggleStatus(w, withID(formRequest(http.MethodPost, "/orders/x/status", form, e.kitchen), o.ID))
	assert.Equal(t, "!status.conflict", flashValue(w))

	form.Set("back", "https://evil.example/")
	form.Set("displayed", "prepared")
	w = httptest.NewRecorder()
	h.ToggleStatus(w, withID(formRequest(http.MethodPost, "/orders/x/status", form, e.kitchen), 9999))
	assert.Equal(t, "/orders", w.Header().Get("Location"))
	assert.Equal(t, "!status.failed", flashValue(w))
}

func TestOrderHTML_ListShowsDashboardLinkAndFlash(t *testing.T) {
	e := setupHandlers(t)

	r := request(http.MethodGet, "/orders?mealType=breakfast", nil, e.caregiver)
	r.AddCookie(&http.Cookie{Name: flashCookie, Value: "status.updated"})
	w := httptest.NewRecorder()
	e.rc.OrderHandler.List(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	link := strings.Index(body, `href="/kitchen-dashboard"`)
	table := strings.Index(body, "<table")
	require.NotEqual(t, -1, link)
	assert.Less(t, link, table, "dashboard link comes before the list")
	assert.Contains(t, body, "Status updated")
	assert.Contains(t, body, "Hans Müller")
	assert.NotContains(t, body, "Klaus Weber", "lunch-only resident filtered out")
}

func TestOrderHTML_CreateRedisplaysForm(t *testing.T) {
	e := setupHandlers(t)

	form := url.Values{"full": {"1"}, "date": {"not-a-date"}, "mealType": {"lunch"}, "lunch.portionSize": {"huge"}}
	w := httptest.NewRecorder()
	e.rc.OrderHandler.Create(w, formRequest(http.MethodPost, "/orders", form, e.caregiver))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid date")
}

func TestOrderPatchFromForm(t *testing.T) {
	t.Run("status only without the full field set", func(t *testing.T) {
		form := url.Values{"status": {"prepared"}, "notes": {"ignored"}}
		r := httptest.NewRequest(http.MethodPost, "/orders/1", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		p, v := orderPatchFromForm(r)
		assert.True(t, v.Empty())
		require.NotNil(t, p.Status)
		assert.Equal(t, models.StatusPrepared, *p.Status)
		assert.Nil(t, p.Notes)
		assert.Nil(t, p.MealType)
	})

	t.Run("only the selected meal group is read", func(t *testing.T) {
		form := url.Values{
			"full":                        {"1"},
			"date":                        {"2030-01-02"},
			"mealType":                    {"lunch"},
			"resident":                    {"3"},
			"highCalorie":                 {"on"},
			"lunch.portionSize":           {"small"},
			"lunch.soup":                  {"on"},
			"lunch.restrictions":          {"no-fish", "fingerfood"},
			"breakfast.standardBreakfast": {"on"},
		}
		r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		p, v := orderPatchFromForm(r)
		require.True(t, v.Empty(), v)
		require.NotNil(t, p.Lunch)
		assert.Nil(t, p.Breakfast)
		assert.Nil(t, p.Dinner)
		assert.Equal(t, "small", p.Lunch.Value.PortionSize)
		assert.True(t, p.Lunch.Value.Soup)
		assert.Equal(t, []string{"no-fish", "fingerfood"}, p.Lunch.Value.Restrictions)
		assert.Equal(t, uint(3), *p.ResidentID)
		assert.True(t, *p.HighCalorie)
		assert.Equal(t, "2030-01-02", p.Date.Format(models.DayLayout))
	})

	t.Run("bad date and resident", func(t *testing.T) {
		form := url.Values{"full": {"1"}, "date": {"02.01.2030"}, "resident": {"x"}}
		r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, v := orderPatchFromForm(r)
		assert.Equal(t, "invalid_date", v["date"])
		assert.Equal(t, "invalid_id", v["resident"])
	})
}

func TestSafeBack(t *testing.T) {
	assert.Equal(t, "/orders?page=2", safeBack("/orders?page=2"))
	assert.Equal(t, "/orders", safeBack(""))
	assert.Equal(t, "/orders", safeBack("//evil.example/orders"))
	assert.Equal(t, "/orders", safeBack("/users"))
}
