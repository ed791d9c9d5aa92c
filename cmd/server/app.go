package main

import (
	"net/http"
	"os"

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/i18n"
	"github.com/diewo77/care-meals/internal/handlers"
	"github.com/diewo77/care-meals/internal/logging"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/view"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	api       *http.ServeMux
	routerCfg *handlers.RouterConfig
	handler   http.Handler
}

// NewApp creates the application with all routes configured.
// origins lists the browser origins allowed to call /api with credentials.
func NewApp(routerCfg *handlers.RouterConfig, log *zap.Logger, origins []string, dev bool) *App {
	app := &App{
		mux:       http.NewServeMux(),
		api:       http.NewServeMux(),
		routerCfg: routerCfg,
	}

	// Templates ask the gate through these callbacks, so view does not import policy.
	ag := routerCfg.AuthGate
	view.SetCanResolver(func(r *http.Request, collection, action string) bool {
		return ag.Can(r.Context(), collection, gate.Action(action))
	})
	view.SetCanFieldResolver(func(r *http.Request, collection, field, action string) bool {
		return ag.CanField(r.Context(), collection, field, gate.Action(action))
	})
	view.SetRoleResolver(func(r *http.Request) string {
		id, err := ag.Identity(r.Context())
		if err != nil {
			return ""
		}
		return string(id.Role)
	})
	if dev {
		// edit templates without rebuilding
		if _, err := os.Stat("view/templates"); err == nil {
			view.SetFS(os.DirFS("view/templates"))
		}
	}

	app.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	app.mux.Handle("/api/", c.Handler(app.api))

	// Global middleware: request logging, session, language preference.
	app.handler = logging.Middleware(log)(auth.Middleware(withPreferences(app.mux)))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler

	a.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/orders", http.StatusSeeOther)
	})
	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mux.HandleFunc("GET /login", ah.Login)
	a.mux.HandleFunc("POST /login", ah.Login)
	a.mux.HandleFunc("GET /logout", ah.Logout)
	a.mux.HandleFunc("POST /logout", ah.Logout)

	// ─────────────────────────────────────────────────────────────────────────
	// HTML pages
	// ─────────────────────────────────────────────────────────────────────────
	oh := a.routerCfg.OrderHandler
	a.page("GET /orders", policy.CollectionOrders, gate.ActionRead, oh.List)
	a.page("GET /orders/new", policy.CollectionOrders, gate.ActionCreate, oh.New)
	a.page("POST /orders", policy.CollectionOrders, gate.ActionCreate, oh.Create)
	a.page("GET /orders/{id}/edit", policy.CollectionOrders, gate.ActionUpdate, oh.Edit)
	a.page("POST /orders/{id}", policy.CollectionOrders, gate.ActionUpdate, oh.Update)
	a.page("POST /orders/{id}/status", policy.CollectionOrders, gate.ActionUpdate, oh.ToggleStatus)
	a.page("POST /orders/{id}/delete", policy.CollectionOrders, gate.ActionDelete, oh.Delete)

	kh := a.routerCfg.KitchenHandler
	a.page("GET /kitchen-dashboard", policy.CollectionOrders, gate.ActionRead, kh.Dashboard)

	rh := a.routerCfg.ResidentHandler
	a.page("GET /residents", policy.CollectionResidents, gate.ActionRead, rh.List)
	a.page("GET /residents/new", policy.CollectionResidents, gate.ActionCreate, rh.New)
	a.page("POST /residents", policy.CollectionResidents, gate.ActionCreate, rh.Create)
	a.page("GET /residents/{id}/edit", policy.CollectionResidents, gate.ActionUpdate, rh.Edit)
	a.page("POST /residents/{id}", policy.CollectionResidents, gate.ActionUpdate, rh.Update)
	a.page("POST /residents/{id}/delete", policy.CollectionResidents, gate.ActionDelete, rh.Delete)

	uh := a.routerCfg.UserHandler
	a.page("GET /users", policy.CollectionUsers, gate.ActionRead, uh.List)
	a.page("GET /users/new", policy.CollectionUsers, gate.ActionCreate, uh.New)
	a.page("POST /users", policy.CollectionUsers, gate.ActionCreate, uh.Create)
	a.page("GET /users/{id}/edit", policy.CollectionUsers, gate.ActionUpdate, uh.Edit)
	a.page("POST /users/{id}", policy.CollectionUsers, gate.ActionUpdate, uh.Update)
	a.page("POST /users/{id}/delete", policy.CollectionUsers, gate.ActionDelete, uh.Delete)

	// ─────────────────────────────────────────────────────────────────────────
	// JSON API
	// ─────────────────────────────────────────────────────────────────────────
	a.api.HandleFunc("POST /api/users/login", ah.APILogin)
	a.api.HandleFunc("POST /api/users/logout", ah.APILogout)
	a.api.Handle("GET /api/users/me", auth.RequireAuth(http.HandlerFunc(ah.Me)))

	a.endpoint("GET /api/users", policy.CollectionUsers, gate.ActionRead, uh.APIList)
	a.endpoint("POST /api/users", policy.CollectionUsers, gate.ActionCreate, uh.APICreate)
	a.endpoint("GET /api/users/{id}", policy.CollectionUsers, gate.ActionRead, uh.APIGet)
	a.endpoint("PATCH /api/users/{id}", policy.CollectionUsers, gate.ActionUpdate, uh.APIUpdate)
	a.endpoint("DELETE /api/users/{id}", policy.CollectionUsers, gate.ActionDelete, uh.APIDelete)

	a.endpoint("GET /api/residents", policy.CollectionResidents, gate.ActionRead, rh.APIList)
	a.endpoint("POST /api/residents", policy.CollectionResidents, gate.ActionCreate, rh.APICreate)
	a.endpoint("GET /api/residents/{id}", policy.CollectionResidents, gate.ActionRead, rh.APIGet)
	a.endpoint("PATCH /api/residents/{id}", policy.CollectionResidents, gate.ActionUpdate, rh.APIUpdate)
	a.endpoint("DELETE /api/residents/{id}", policy.CollectionResidents, gate.ActionDelete, rh.APIDelete)

	a.endpoint("GET /api/orders", policy.CollectionOrders, gate.ActionRead, oh.APIList)
	a.endpoint("POST /api/orders", policy.CollectionOrders, gate.ActionCreate, oh.APICreate)
	a.endpoint("GET /api/orders/{id}", policy.CollectionOrders, gate.ActionRead, oh.APIGet)
	a.endpoint("PATCH /api/orders/{id}", policy.CollectionOrders, gate.ActionUpdate, oh.APIUpdate)
	a.endpoint("POST /api/orders/{id}/toggle", policy.CollectionOrders, gate.ActionUpdate, oh.APIToggle)
	a.endpoint("DELETE /api/orders/{id}", policy.CollectionOrders, gate.ActionDelete, oh.APIDelete)

	a.endpoint("GET /api/kitchen/summary", policy.CollectionOrders, gate.ActionRead, kh.Summary)
}

// page registers an HTML route behind the session check and the collection rule.
func (a *App) page(pattern, collection string, action gate.Action, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.protect(collection, action, h))
}

// endpoint registers a JSON route behind the session check and the collection rule.
func (a *App) endpoint(pattern, collection string, action gate.Action, h http.HandlerFunc) {
	a.api.Handle(pattern, a.protect(collection, action, h))
}

func (a *App) protect(collection string, action gate.Action, h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(a.routerCfg.AuthGate.RequirePermission(collection, action)(h))
}

// withPreferences injects the language preference from query, cookie or Accept-Language.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && i18n.Supported(c.Value) {
			lang = c.Value
		}
		if q := r.URL.Query().Get("lang"); i18n.Supported(q) {
			lang = q
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}
