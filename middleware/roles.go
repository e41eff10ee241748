package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/store"
)

// RoleResolver looks up users/{uid} roles, keeping recent answers in memory
// for ttl. Unassigned roles are not cached.
type RoleResolver struct {
	users  store.UserStore
	cache  *ttlcache.Cache[string, models.Role]
	logger *slog.Logger
}

func NewRoleResolver(users store.UserStore, ttl time.Duration, logger *slog.Logger) *RoleResolver {
	if logger == nil {
		logger = slog.Default()
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, models.Role](ttl),
		ttlcache.WithDisableTouchOnHit[string, models.Role](),
	)
	return &RoleResolver{users: users, cache: cache, logger: logger}
}

func (rr *RoleResolver) Resolve(ctx context.Context, uid string) (models.Role, error) {
	if item := rr.cache.Get(uid); item != nil {
		return item.Value(), nil
	}
	role, err := rr.users.GetUserRole(ctx, uid)
	if err != nil {
		return "", err
	}
	if role != "" {
		rr.cache.Set(uid, role, ttlcache.DefaultTTL)
	}
	return role, nil
}

// SetRole persists role and refreshes the cached entry.
func (rr *RoleResolver) SetRole(ctx context.Context, uid string, role models.Role) error {
	if err := rr.users.SaveUserRole(ctx, uid, role); err != nil {
		rr.cache.Delete(uid)
		return err
	}
	rr.cache.Set(uid, role, ttlcache.DefaultTTL)
	return nil
}

// Middleware fills in the role of the authenticated identity. It must run
// after AuthMiddleware.
func (rr *RoleResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		role, err := rr.Resolve(r.Context(), identity.UID)
		if err != nil {
			rr.logger.Error("Role lookup failed", slog.String("uid", identity.UID), slog.String("error", err.Error()))
			http.Error(w, "Failed to resolve user role", http.StatusBadGateway)
			return
		}
		identity.Role = role
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireRole rejects callers whose resolved role is not role.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if identity.Role != role {
				http.Error(w, "Only "+string(role)+"s may perform this action", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
