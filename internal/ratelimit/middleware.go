package ratelimit

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	"github.com/ndatsenko/pulsemon/internal/logging"
)

// Middleware gates requests per client IP. Throttled responses carry the
// standard X-RateLimit headers plus Retry-After.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if l.Allow(ip) {
				return next(c)
			}

			_, reset := l.Status(ip)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.Max()))
			h.Set("X-RateLimit-Remaining", "0")
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Duration(reset)*time.Second).Unix(), 10))
			h.Set("Retry-After", strconv.Itoa(reset))

			logging.FromContext(c.Request().Context()).Warn("rate limit exceeded", "ip", ip, "path", c.Path())
			return httperr.New(httperr.RateLimited, "too many requests")
		}
	}
}
