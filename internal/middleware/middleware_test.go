package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/citypair-slots/internal/config"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/slots")
	return c, rec
}

func TestRequestIDGeneratesAndKeeps(t *testing.T) {
	h := RequestID()(func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	c, rec := newContext(http.MethodGet, "/v1/slots")
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	rid := rec.Header().Get(echo.HeaderXRequestID)
	if len(rid) != 36 || rec.Body.String() != rid {
		t.Fatalf("generated id = %q, body = %q", rid, rec.Body.String())
	}

	c, rec = newContext(http.MethodGet, "/v1/slots")
	c.Request().Header.Set(echo.HeaderXRequestID, "abc-123")
	_ = h(c)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "abc-123" {
		t.Fatalf("kept id = %q", got)
	}

	c, rec = newContext(http.MethodGet, "/v1/slots")
	c.Request().Header.Set(echo.HeaderXRequestID, strings.Repeat("x", 65))
	_ = h(c)
	if got := rec.Header().Get(echo.HeaderXRequestID); len(got) != 36 {
		t.Fatalf("oversized id not replaced: %q", got)
	}
}

func TestLoggerLevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mw := Logger(zap.New(core))

	c, _ := newContext(http.MethodGet, "/v1/slots?x=1")
	_ = mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)

	c, _ = newContext(http.MethodPost, "/v1/slots")
	_ = mw(func(echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "bad") })(c)

	c, rec := newContext(http.MethodDelete, "/v1/slots/1")
	_ = mw(func(echo.Context) error { return errors.New("boom") })(c)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("entry %d level = %s, want %s", i, e.Level, want[i])
		}
	}
	if q := entries[0].ContextMap()["query"]; q != "x=1" {
		t.Fatalf("query field = %v", q)
	}
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	a, _ := newContext(http.MethodGet, "/v1/slots?page=1")
	b, _ := newContext(http.MethodGet, "/v1/slots?page=2")
	ka, kb := CacheKey(cfg, a), CacheKey(cfg, b)
	if ka == kb {
		t.Fatal("route_query keys should differ by query")
	}
	if !strings.HasPrefix(ka, "cache:") || len(ka) != len("cache:")+40 {
		t.Fatalf("key = %q", ka)
	}

	cfg.KeyStrategy = "route"
	if CacheKey(cfg, a) != CacheKey(cfg, b) {
		t.Fatal("route keys should ignore the query")
	}
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	called := false
	h := NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	c, rec := newContext(http.MethodGet, "/v1/slots")
	if err := h(c); err != nil || !called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Fatal("X-Cache set without redis")
	}
	if err := InvalidateCache(context.Background(), nil, "cache"); err != nil {
		t.Fatalf("InvalidateCache(nil): %v", err)
	}
}

func TestRateKey(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/v1/slots")
	tests := map[string]string{
		"ip":       "rl:ip:10.0.0.7",
		"route":    "rl:route:POST /v1/slots",
		"ip_route": "rl:ip:10.0.0.7:route:POST /v1/slots",
		"":         "rl:ip:10.0.0.7:route:POST /v1/slots",
	}
	for strategy, want := range tests {
		got := RateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Fatalf("RateKey(%q) = %q, want %q", strategy, got, want)
		}
	}
}

func TestBodyRecorderDropsOversizedBodies(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = rec.Write([]byte("abc"))
	_, _ = rec.Write([]byte("def"))
	if !rec.over || rec.buf.Len() != 0 {
		t.Fatalf("over = %v, buffered = %d", rec.over, rec.buf.Len())
	}
}
