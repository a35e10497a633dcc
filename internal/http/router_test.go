package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/leadchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/leadchat-backend/internal/http/middleware"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

func TestRouterHealthAndPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Log:            logger.Nop(),
		AuthMiddleware: httpMW.NewAuthMiddleware(logger.Nop(), "secret"),
		HealthHandler:  httpH.NewHealthHandler(),
		LeadHandler:    httpH.NewLeadHandler(nil),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("expected trace headers, got %v", rec.Header())
	}

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/submit-lead-form", nil)
	req.Header.Set("Origin", "https://customer.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight: %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodPost, "/functions/v1/submit-lead-form", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestRouterClientIPHonoursTrustedProxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		proxies []string
		want    string
	}{
		{"no proxies trusted", nil, "203.0.113.9"},
		{"load balancer trusted", []string{"203.0.113.0/24"}, "198.51.100.7"},
	}
	for _, tc := range cases {
		r := NewRouter(RouterConfig{Log: logger.Nop(), TrustedProxies: tc.proxies})
		r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.RemoteAddr = "203.0.113.9:41000"
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Body.String() != tc.want {
			t.Fatalf("%s: client ip %q want %q", tc.name, rec.Body.String(), tc.want)
		}
	}
}
