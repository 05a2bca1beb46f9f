package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "trade_portal_backend/internal/http"
	"trade_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const secret = "test-secret"

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return secret }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	ctx.Admin.GET("/admin/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   uuid.NewString(),
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func get(engine *gin.Engine, path, bearer string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec.Code
}

func TestHealth(t *testing.T) {
	if code := get(newEngine(pinger{}), "/api/health", ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := get(newEngine(pinger{err: errors.New("db down")}), "/api/health", ""); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the database is down, got %d", code)
	}
}

func TestRouteGroups(t *testing.T) {
	engine := newEngine(nil)

	if code := get(engine, "/api/v1/ping", ""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", code)
	}
	if code := get(engine, "/api/v1/ping", token(t, "customer")); code != http.StatusOK {
		t.Fatalf("customer on protected route: expected 200, got %d", code)
	}
	if code := get(engine, "/api/v1/admin/ping", token(t, "customer")); code != http.StatusForbidden {
		t.Fatalf("customer on admin route: expected 403, got %d", code)
	}
	if code := get(engine, "/api/v1/admin/ping", token(t, "admin")); code != http.StatusOK {
		t.Fatalf("admin on admin route: expected 200, got %d", code)
	}
}
