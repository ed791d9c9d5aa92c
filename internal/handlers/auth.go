package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users *services.UserService
	gate  *policy.AuthGate
	log   *zap.Logger
}

func NewAuthHandler(users *services.UserService, ag *policy.AuthGate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, gate: ag, log: log}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		render(w, r, h.log, "login.html", nil)
		return
	}

	email := r.FormValue("email")
	user, err := h.users.Authenticate(r.Context(), email, r.FormValue("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		render(w, r, h.log, "login.html", map[string]any{
			"Email":  email,
			"Error":  "Invalid email or password",
			"Status": http.StatusUnauthorized,
		})
		return
	}
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	auth.CreateSession(w, user.ID)
	h.log.Info("user logged in", zap.Uint("user_id", user.ID))
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// APILogin sets the session cookie and also returns the token for bearer clients.
func (h *AuthHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	user, err := h.users.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, loginResponse{Token: auth.Token(user.ID), User: user})
}

func (h *AuthHandler) APILogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the user record of the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	who, err := h.gate.Identity(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	u, err := h.users.Get(r.Context(), who, who.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": u})
}
