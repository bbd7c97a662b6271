// Package auth is the request gate for user traffic: Bearer extraction,
// signature verification, session (revocation) check, role resolution
// through the cache, and the role intersection check, in that order. Any
// ambiguity along the way rejects the request.
package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	"github.com/ndatsenko/pulsemon/internal/logging"
	"github.com/ndatsenko/pulsemon/internal/rolecache"
	"github.com/ndatsenko/pulsemon/internal/session"
	"github.com/ndatsenko/pulsemon/internal/store"
	"github.com/ndatsenko/pulsemon/internal/token"
)

const (
	ctxUserID   = "userID"
	ctxUsername = "username"
	ctxRoles    = "roles"
	ctxToken    = "token"
)

const bearerPrefix = "Bearer "

// Principal is the identity attached to the request after authentication.
type Principal struct {
	UserID   uint
	Username string
	Roles    []string
	Token    string
}

type Authenticator struct {
	Secret   []byte
	Sessions *session.Store
	Roles    *store.RoleStore
	Cache    *rolecache.Cache
}

// Middleware authenticates the request and, when requiredRoles is non-empty,
// authorizes it: the user passes if their role set intersects requiredRoles.
// With no required roles any authenticated user passes, but a user whose
// resolved role set is empty is rejected either way.
func (a *Authenticator) Middleware(requiredRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx)

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return httperr.New(httperr.Unauthorized, "unauthorized")
			}
			tokenStr := strings.TrimSpace(header[len(bearerPrefix):])
			if tokenStr == "" {
				return httperr.New(httperr.Unauthorized, "unauthorized")
			}

			claims, err := token.Verify(tokenStr, a.Secret)
			if err != nil {
				l.Warn("token verification failed", "error", err)
				return httperr.New(httperr.Unauthorized, "invalid or expired token")
			}

			// A structurally valid token that was logged out (or whose
			// session row vanished) is just as dead as a forged one.
			if !a.Sessions.IsActive(ctx, tokenStr) {
				l.Warn("token has no active session", "user_id", claims.UserID)
				return httperr.New(httperr.Unauthorized, "invalid or expired token")
			}

			roles := a.resolveRoles(c, claims.UserID)
			if len(roles) == 0 {
				l.Warn("user has no roles", "user_id", claims.UserID)
				return httperr.New(httperr.Forbidden, "forbidden")
			}

			if len(requiredRoles) > 0 && !hasAnyRole(roles, requiredRoles) {
				l.Warn("insufficient role", "user_id", claims.UserID, "required", requiredRoles)
				return httperr.New(httperr.Forbidden, "forbidden")
			}

			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxUsername, claims.Username)
			c.Set(ctxRoles, roles)
			c.Set(ctxToken, tokenStr)
			return next(c)
		}
	}
}

// resolveRoles returns the user's current roles, preferring the cache. Roles
// are re-resolved per request rather than trusted from the token, so role
// revocation takes effect within the cache TTL at worst and immediately
// after an explicit invalidation. Fetch failures resolve to no roles.
func (a *Authenticator) resolveRoles(c echo.Context, userID uint) []string {
	if roles, ok := a.Cache.Get(userID); ok {
		return roles
	}

	ctx := c.Request().Context()
	roles, err := a.Roles.RolesForUser(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("role resolution failed", "user_id", userID, "error", err)
		return nil
	}
	if len(roles) > 0 {
		a.Cache.Put(userID, roles, 0)
	}
	return roles
}

func hasAnyRole(userRoles, required []string) bool {
	for _, want := range required {
		for _, have := range userRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CurrentUser reads the principal set by Middleware. ok is false on routes
// that did not pass through it.
func CurrentUser(c echo.Context) (Principal, bool) {
	userID, okID := c.Get(ctxUserID).(uint)
	username, okName := c.Get(ctxUsername).(string)
	roles, okRoles := c.Get(ctxRoles).([]string)
	if !okID || !okName || !okRoles {
		return Principal{}, false
	}
	tokenStr, _ := c.Get(ctxToken).(string)
	return Principal{UserID: userID, Username: username, Roles: roles, Token: tokenStr}, true
}
