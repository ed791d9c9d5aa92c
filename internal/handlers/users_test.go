package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAPI_ListScopesNonAdmins(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.UserHandler

	w := httptest.NewRecorder()
	h.APIList(w, request(http.MethodGet, "/api/users", nil, e.admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var all httpx.ListResponse[models.User]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, int64(3), all.TotalDocs)
	assert.NotContains(t, w.Body.String(), "password")

	w = httptest.NewRecorder()
	h.APIList(w, request(http.MethodGet, "/api/users", nil, e.kitchen))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var own httpx.ListResponse[models.User]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &own))
	require.Len(t, own.Docs, 1)
	assert.Equal(t, e.kitchen.ID, own.Docs[0].ID)
}

func TestUserAPI_GetOtherUserForbidden(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.UserHandler

	w := httptest.NewRecorder()
	h.APIGet(w, withID(request(http.MethodGet, "/api/users/x", nil, e.caregiver), e.admin.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.APIGet(w, withID(request(http.MethodGet, "/api/users/x", nil, e.caregiver), e.caregiver.ID))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserAPI_RoleChangeNeedsAdmin(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.UserHandler

	w := httptest.NewRecorder()
	h.APIUpdate(w, withID(jsonRequest(http.MethodPatch, "/api/users/x", `{"role":"admin"}`, e.caregiver), e.caregiver.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.APIUpdate(w, withID(jsonRequest(http.MethodPatch, "/api/users/x", `{"name":"Carla"}`, e.caregiver), e.caregiver.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	h.APIUpdate(w, withID(jsonRequest(http.MethodPatch, "/api/users/x", `{"role":"kitchen"}`, e.admin), e.caregiver.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.User
	require.NoError(t, e.db.First(&stored, e.caregiver.ID).Error)
	assert.Equal(t, "Carla", stored.Name)
	assert.Equal(t, models.RoleKitchen, stored.Role)
}

func TestUserAPI_CreateDuplicateEmail(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.UserHandler
	body := `{"email":"New@Example.com","password":"pw","role":"kitchen"}`

	w := httptest.NewRecorder()
	h.APICreate(w, jsonRequest(http.MethodPost, "/api/users", body, e.admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, "new@example.com", u.Email)

	w = httptest.NewRecorder()
	h.APICreate(w, jsonRequest(http.MethodPost, "/api/users", body, e.admin))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate", decodeError(t, w))
}

func TestUserAPI_CreateRequiresAdmin(t *testing.T) {
	e := setupHandlers(t)

	w := httptest.NewRecorder()
	e.rc.UserHandler.APICreate(w, jsonRequest(http.MethodPost, "/api/users", `{"email":"x@example.com","password":"pw"}`, e.caregiver))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserAPI_Delete(t *testing.T) {
	e := setupHandlers(t)
	h := e.rc.UserHandler

	w := httptest.NewRecorder()
	h.APIDelete(w, withID(request(http.MethodDelete, "/api/users/x", nil, e.admin), e.admin.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "self_delete", decodeError(t, w))

	w = httptest.NewRecorder()
	h.APIDelete(w, withID(request(http.MethodDelete, "/api/users/x", nil, e.admin), e.kitchen.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d}`, e.kitchen.ID), w.Body.String())
}

func TestUserHTML_SelfDeleteFlash(t *testing.T) {
	e := setupHandlers(t)

	w := httptest.NewRecorder()
	e.rc.UserHandler.Delete(w, withID(request(http.MethodPost, "/users/x/delete", nil, e.admin), e.admin.ID))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))
	assert.Equal(t, "!user.self_delete", flashValue(w))
}

func TestUserHTML_UpdateOwnProfile(t *testing.T) {
	e := setupHandlers(t)

	w := httptest.NewRecorder()
	e.rc.UserHandler.Update(w, withID(formRequest(http.MethodPost, "/users/x", url.Values{
		"email": {"caregiver@example.com"},
		"name":  {"Care Giver"},
	}, e.caregiver), e.caregiver.ID))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/orders", w.Header().Get("Location"))

	var stored models.User
	require.NoError(t, e.db.First(&stored, e.caregiver.ID).Error)
	assert.Equal(t, "Care Giver", stored.Name)
	assert.True(t, stored.CheckPassword("test"), "blank password field must keep the old one")
}

func TestUserPatchFromForm(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/users/1", nil)
	r.PostForm = url.Values{"email": {" a@b.c "}, "name": {"A"}, "password": {""}}
	in := userPatchFromForm(r)
	require.NotNil(t, in.Email)
	assert.Equal(t, "a@b.c", *in.Email)
	assert.Nil(t, in.Password)
	assert.Nil(t, in.Role)

	r.PostForm.Set("role", "kitchen")
	r.PostForm.Set("password", "secret")
	in = userPatchFromForm(r)
	require.NotNil(t, in.Role)
	assert.Equal(t, models.RoleKitchen, *in.Role)
	require.NotNil(t, in.Password)
	assert.Equal(t, "secret", *in.Password)
}
