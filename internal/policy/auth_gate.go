package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/gate"
	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
	"gorm.io/gorm"
)

// AuthGate holds the policy table and the cached identity resolver.
// Use this as the central authorization point of the application.
type AuthGate struct {
	Table         *gate.Table[*Identity]
	CacheResolver *gate.CachedResolver[uint, *Identity]
}

// NewAuthGate creates a fully configured authorization gate.
// - db: GORM database connection for identity lookups
// - cacheTTL: how long to cache resolved identities (e.g., 5*time.Minute)
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	return NewAuthGateWithResolver(NewDBIdentityResolver(db), cacheTTL)
}

// NewAuthGateWithResolver builds a gate on top of any identity resolver.
func NewAuthGateWithResolver(r gate.Resolver[uint, *Identity], cacheTTL time.Duration) *AuthGate {
	return &AuthGate{
		Table:         NewTable(),
		CacheResolver: gate.NewCachedResolver[uint, *Identity](r, cacheTTL),
	}
}

// Identity resolves the requester of ctx.
// Returns gate.ErrUnauthorized when there is no session or the user no longer exists.
func (ag *AuthGate) Identity(ctx context.Context) (*Identity, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok || userID == 0 {
		return nil, gate.ErrUnauthorized
	}
	id, err := ag.CacheResolver.Resolve(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gate.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, gate.ErrUnauthorized
	}
	return id, nil
}

// Authorize checks the collection-level rule for the requester of ctx.
func (ag *AuthGate) Authorize(ctx context.Context, collection string, action gate.Action, target any) error {
	id, err := ag.Identity(ctx)
	if err != nil {
		return err
	}
	return ag.Table.Authorize(ctx, id, collection, action, target)
}

// Can is a convenience method that returns bool instead of error.
// Useful for templates to show/hide controls.
func (ag *AuthGate) Can(ctx context.Context, collection string, action gate.Action) bool {
	return ag.Authorize(ctx, collection, action, nil) == nil
}

// CanField reports whether the requester may change a single field.
func (ag *AuthGate) CanField(ctx context.Context, collection, field string, action gate.Action) bool {
	id, err := ag.Identity(ctx)
	if err != nil {
		return false
	}
	return ag.Table.CanField(ctx, id, collection, field, action, nil)
}

// InvalidateUser clears the cache for a specific user.
// Call this when a user's role changes or the user is deleted.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// RequirePermission returns middleware that checks the collection-level rule.
// Record-dependent rules (isAdminOrSelf) are evaluated again by the services.
func (ag *AuthGate) RequirePermission(collection string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			if collection == CollectionUsers && allowsSelf(action) {
				_, err = ag.Identity(r.Context())
			} else {
				err = ag.Authorize(r.Context(), collection, action, nil)
			}
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole returns middleware that only allows the given roles.
func (ag *AuthGate) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := ag.Identity(r.Context())
			if err != nil {
				deny(w, r, err)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, r, gate.ErrUnauthorized)
		})
	}
}

func allowsSelf(action gate.Action) bool {
	return action == gate.ActionRead || action == gate.ActionUpdate
}

func deny(w http.ResponseWriter, r *http.Request, err error) {
	_, loggedIn := auth.UserIDFromContext(r.Context())
	status := http.StatusForbidden
	code := "forbidden"
	if !loggedIn {
		status, code = http.StatusUnauthorized, "unauthorized"
	} else if !errors.Is(err, gate.ErrUnauthorized) && !errors.Is(err, gate.ErrNoPolicyDefined) {
		status, code = http.StatusInternalServerError, "identity_error"
	}
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, status, code, nil)
		return
	}
	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Error(w, http.StatusText(status), status)
}
