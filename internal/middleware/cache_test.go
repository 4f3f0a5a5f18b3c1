package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func testContext(t *testing.T, target string, userID interface{}) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/sessions/reserved-times")
	if userID != nil {
		c.Set("user_id", userID)
	}
	return c
}

func TestCacheKey(t *testing.T) {
	const target = "/v1/sessions/reserved-times?date=2026-03-03"

	t.Run("stable for identical requests", func(t *testing.T) {
		a := cacheKey("cache", testContext(t, target, uint64(1)))
		b := cacheKey("cache", testContext(t, target, uint64(1)))
		assert.Equal(t, a, b)
	})

	t.Run("differs per authenticated user", func(t *testing.T) {
		// The reserved-times listing answers from the JWT subject, so two
		// users asking for the same date must never share a cache entry.
		a := cacheKey("cache", testContext(t, target, uint64(1)))
		b := cacheKey("cache", testContext(t, target, uint64(2)))
		assert.NotEqual(t, a, b)
	})

	t.Run("differs per query string", func(t *testing.T) {
		a := cacheKey("cache", testContext(t, target, uint64(1)))
		b := cacheKey("cache", testContext(t, "/v1/sessions/reserved-times?date=2026-03-04", uint64(1)))
		assert.NotEqual(t, a, b)
	})

	t.Run("anonymous requests key on route and query alone", func(t *testing.T) {
		a := cacheKey("cache", testContext(t, target, nil))
		b := cacheKey("cache", testContext(t, target, nil))
		assert.Equal(t, a, b)
	})
}
