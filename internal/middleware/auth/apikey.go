package auth

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	"github.com/ndatsenko/pulsemon/internal/logging"
	"github.com/ndatsenko/pulsemon/internal/store"
)

const (
	// HeaderAPIKey authenticates machine clients on ingestion paths. It is a
	// separate trust domain from Bearer tokens: no user, no roles.
	HeaderAPIKey = "X-API-Key"

	ctxAPIClient = "apiClient"
)

// APIKeyOrBearer admits a request either through a valid X-API-Key or, when
// the header is absent, through the normal Bearer pipeline.
func APIKeyOrBearer(a *Authenticator, clients *store.APIClientStore, requiredRoles ...string) echo.MiddlewareFunc {
	bearer := a.Middleware(requiredRoles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		apiKey := requireAPIKey(clients)(next)
		viaBearer := bearer(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(HeaderAPIKey) != "" {
				return apiKey(c)
			}
			return viaBearer(c)
		}
	}
}

func requireAPIKey(clients *store.APIClientStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := c.Request().Header.Get(HeaderAPIKey)

			client, err := clients.FindActiveByKey(ctx, key)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					logging.FromContext(ctx).Error("api key lookup failed", "error", err)
				} else {
					logging.FromContext(ctx).Warn("rejected api key")
				}
				return httperr.New(httperr.Unauthorized, "invalid or inactive API key")
			}

			c.Set(ctxAPIClient, client.Name)
			return next(c)
		}
	}
}

// APIClientName returns the authenticated machine client's name, if the
// request came in through the API-key path.
func APIClientName(c echo.Context) (string, bool) {
	name, ok := c.Get(ctxAPIClient).(string)
	return name, ok
}
