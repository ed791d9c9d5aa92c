package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/logging"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
	"github.com/diewo77/care-meals/view"
	"go.uber.org/zap"
)

// StatusOf maps a service or gate error to an HTTP status and error code.
func StatusOf(r *http.Request, err error) (int, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, gate.ErrUnauthorized), errors.Is(err, gate.ErrNoPolicyDefined):
		if _, ok := auth.UserIDFromContext(r.Context()); !ok {
			return http.StatusUnauthorized, "unauthorized"
		}
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrStatusConflict):
		return http.StatusConflict, "status_conflict"
	case errors.Is(err, services.ErrInUse):
		return http.StatusConflict, "in_use"
	case errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, services.ErrSelfDelete):
		return http.StatusBadRequest, "self_delete"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError answers a JSON request with the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code := StatusOf(r, err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context(), log).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	var details any
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		details = verr.Violations
	}
	httpx.JSONError(w, status, code, details)
}

// renderError shows the error page for an HTML request. 401 redirects to the login form.
func renderError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code := StatusOf(r, err)
	if status == http.StatusUnauthorized && code == "unauthorized" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context(), log).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	render(w, r, log, "error.html", map[string]any{
		"Status":  status,
		"Message": http.StatusText(status),
	})
}

// render executes a page template, falling back to a plain 500 when the template fails.
func render(w http.ResponseWriter, r *http.Request, log *zap.Logger, name string, data map[string]any) {
	if err := view.Render(w, r, name, data); err != nil {
		logging.FromContext(r.Context(), log).Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

// requester resolves the identity behind the request session.
func requester(ag *policy.AuthGate, r *http.Request) (*policy.Identity, error) {
	return ag.Identity(r.Context())
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, services.ErrNotFound
	}
	return uint(id), nil
}

const flashCookie = "flash"

// setFlash stores a one-shot message code shown on the next rendered page.
// Codes prefixed with "!" are errors.
func setFlash(w http.ResponseWriter, code string, isError bool) {
	if isError {
		code = "!" + code
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    code,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// popFlash reads and clears the flash cookie, filling Flash or FlashError in data.
func popFlash(w http.ResponseWriter, r *http.Request, data map[string]any) {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
	if c.Value[0] == '!' {
		data["FlashError"] = c.Value[1:]
		return
	}
	data["Flash"] = c.Value
}
