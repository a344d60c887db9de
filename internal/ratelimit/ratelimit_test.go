package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestAllowWithoutRedis(t *testing.T) {
	l := New(nil, time.Minute, 1)
	for i := 0; i < 10; i++ {
		ok, err := l.Allow(context.Background(), "ratelimit:test:1.2.3.4")
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestMiddlewarePassesThroughWithoutRedis(t *testing.T) {
	l := New(nil, time.Minute, 1)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := l.Middleware("login")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}
