package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ndatsenko/pulsemon/internal/httperr"
)

func TestAllowUpToMax(t *testing.T) {
	l := New(3, time.Minute)

	require.True(t, l.Allow("1.2.3.4"))
	require.True(t, l.Allow("1.2.3.4"))
	require.True(t, l.Allow("1.2.3.4"))
	require.False(t, l.Allow("1.2.3.4"))

	// other keys have their own budget
	require.True(t, l.Allow("5.6.7.8"))
}

func TestDeniedCallsDoNotExtendLockout(t *testing.T) {
	l := New(2, time.Minute)

	require.True(t, l.Allow("k"))
	require.True(t, l.Allow("k"))

	for i := 0; i < 10; i++ {
		require.False(t, l.Allow("k"))
	}

	count, _ := l.Status("k")
	require.Equal(t, 2, count)
}

func TestWindowResets(t *testing.T) {
	l := New(1, 20*time.Millisecond)

	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	time.Sleep(30 * time.Millisecond)
	require.True(t, l.Allow("k"))
}

func TestStatus(t *testing.T) {
	l := New(5, time.Minute)

	count, reset := l.Status("fresh")
	require.Zero(t, count)
	require.Equal(t, 60, reset)

	l.Allow("k")
	l.Allow("k")
	count, reset = l.Status("k")
	require.Equal(t, 2, count)
	require.Greater(t, reset, 0)
	require.LessOrEqual(t, reset, 60)
}

func TestEmptyKeyAlwaysAllowed(t *testing.T) {
	l := New(1, time.Minute)

	require.True(t, l.Allow(""))
	require.True(t, l.Allow(""))
	require.True(t, l.Allow(""))
}

func TestDefaults(t *testing.T) {
	l := New(0, 0)
	require.Equal(t, 100, l.Max())

	_, reset := l.Status("fresh")
	require.Equal(t, 60, reset)
}

func TestCleanup(t *testing.T) {
	l := New(5, 10*time.Millisecond)

	l.Allow("a")
	l.Allow("b")
	time.Sleep(20 * time.Millisecond)
	l.Allow("c")

	l.Cleanup()

	l.mu.Lock()
	_, aLive := l.entries["a"]
	_, cLive := l.entries["c"]
	l.mu.Unlock()
	require.False(t, aLive)
	require.True(t, cLive)
}

func TestMiddlewareThrottles(t *testing.T) {
	l := New(2, time.Minute)
	e := echo.New()
	handler := l.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	do := func() (int, http.Header, error) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := handler(c)
		return rec.Code, rec.Header(), err
	}

	code, _, err := do()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)

	_, _, err = do()
	require.NoError(t, err)

	_, headers, err := do()
	require.Error(t, err)
	var httpErr *httperr.Error
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, httperr.RateLimited, httpErr.Kind)

	require.Equal(t, "2", headers.Get("X-RateLimit-Limit"))
	require.Equal(t, "0", headers.Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, headers.Get("X-RateLimit-Reset"))
	require.NotEmpty(t, headers.Get("Retry-After"))
}
