package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
	"github.com/diewo77/care-meals/validation"
	"go.uber.org/zap"
)

type UserHandler struct {
	users *services.UserService
	gate  *policy.AuthGate
	log   *zap.Logger
}

func NewUserHandler(users *services.UserService, ag *policy.AuthGate, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, gate: ag, log: log}
}

func (h *UserHandler) APIList(w http.ResponseWriter, r *http.Request) {
	p, v := services.ParsePage(r.URL.Query())
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_query", v)
		return
	}
	who, err := requester(h.gate, r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	p = p.Normalize()
	users, total, err := h.users.List(r.Context(), who, p)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewList(users, total, p.Limit, p.Page))
}

func (h *UserHandler) APIGet(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	u, err := h.users.Get(r.Context(), who, id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *UserHandler) APICreate(w http.ResponseWriter, r *http.Request) {
	var in services.UserPatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	who, err := requester(h.gate, r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	u, err := h.users.Create(r.Context(), who, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *UserHandler) APIUpdate(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var in services.UserPatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	u, err := h.users.Update(r.Context(), who, id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *UserHandler) APIDelete(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.users.Delete(r.Context(), who, id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]uint{"id": id})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	p := services.Page{Limit: 50, Page: page}.Normalize()
	users, total, err := h.users.List(r.Context(), who, p)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	data := map[string]any{
		"Title": "Users",
		"Users": users,
		"List":  httpx.NewList(users, total, p.Limit, p.Page),
	}
	popFlash(w, r, data)
	render(w, r, h.log, "users/index.html", data)
}

func (h *UserHandler) New(w http.ResponseWriter, r *http.Request) {
	if _, err := requester(h.gate, r); err != nil {
		renderError(w, r, h.log, err)
		return
	}
	h.renderForm(w, r, &models.User{Role: models.RoleCaregiver}, "/users", validation.Violations{})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	in := userPatchFromForm(r)
	if _, err := h.users.Create(r.Context(), who, in); err != nil {
		h.formError(w, r, err, in, &models.User{}, "/users")
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	u, err := h.users.Get(r.Context(), who, id)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	h.renderForm(w, r, u, "/users/"+strconv.FormatUint(uint64(id), 10), validation.Violations{})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	in := userPatchFromForm(r)
	if _, err := h.users.Update(r.Context(), who, id, in); err != nil {
		h.formError(w, r, err, in, &models.User{ID: id}, "/users/"+strconv.FormatUint(uint64(id), 10))
		return
	}
	if who.Role != models.RoleAdmin {
		http.Redirect(w, r, "/orders", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err == nil {
		err = h.users.Delete(r.Context(), who, id)
	}
	if errors.Is(err, services.ErrSelfDelete) {
		setFlash(w, "user.self_delete", true)
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *UserHandler) target(r *http.Request) (uint, *policy.Identity, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	who, err := requester(h.gate, r)
	return id, who, err
}

func (h *UserHandler) formError(w http.ResponseWriter, r *http.Request, err error, in services.UserPatch, u *models.User, action string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		fillUser(u, in)
		h.renderForm(w, r, u, action, verr.Violations, http.StatusBadRequest)
	case errors.Is(err, services.ErrDuplicate):
		fillUser(u, in)
		h.renderForm(w, r, u, action, validation.Violations{"email": "duplicate"}, http.StatusConflict)
	default:
		renderError(w, r, h.log, err)
	}
}

func fillUser(u *models.User, in services.UserPatch) {
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
}

func (h *UserHandler) renderForm(w http.ResponseWriter, r *http.Request, u *models.User, action string, v validation.Violations, status ...int) {
	data := map[string]any{
		"Title":  "User",
		"User":   u,
		"Action": action,
		"Errors": v,
		"Roles":  models.Roles,
	}
	if len(status) > 0 {
		data["Status"] = status[0]
	}
	render(w, r, h.log, "users/form.html", data)
}

// userPatchFromForm leaves the password untouched when the field is blank,
// and only sends a role when the form showed the role select.
func userPatchFromForm(r *http.Request) services.UserPatch {
	_ = r.ParseForm()
	f := r.PostForm
	email := strings.TrimSpace(f.Get("email"))
	name := strings.TrimSpace(f.Get("name"))
	in := services.UserPatch{Email: &email, Name: &name}
	if pw := f.Get("password"); pw != "" {
		in.Password = &pw
	}
	if _, ok := f["role"]; ok {
		role := models.Role(f.Get("role"))
		in.Role = &role
	}
	return in
}
