package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func authRouter(seen **ctxutil.RequestData) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), testSecret).Attach())
	r.POST("/x", func(c *gin.Context) {
		*seen = ctxutil.GetRequestData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthAttachesClaims(t *testing.T) {
	var seen *ctxutil.RequestData
	r := authRouter(&seen)
	userID := uuid.New()
	token := signed(t, testSecret, Claims{
		Email:       "Owner@Example.com",
		Role:        "authenticated",
		AppMetadata: AppMetadata{Role: "admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || seen == nil {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if seen.UserID != userID || seen.Role != "admin" || seen.Email != "owner@example.com" {
		t.Fatalf("unexpected request data %+v", seen)
	}
}

func TestAuthAnonymousKeepsClientIP(t *testing.T) {
	var seen *ctxutil.RequestData
	r := authRouter(&seen)
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.RemoteAddr = "203.0.113.9:4711"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen == nil {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if seen.UserID != uuid.Nil || seen.ClientIP != "203.0.113.9" {
		t.Fatalf("unexpected request data %+v", seen)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	expired := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	cases := map[string]string{
		"wrong secret": signed(t, "other", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}}),
		"expired":      signed(t, testSecret, expired),
		"bad subject":  signed(t, testSecret, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"}}),
		"garbage":      "abc.def.ghi",
	}
	for name, token := range cases {
		var seen *ctxutil.RequestData
		r := authRouter(&seen)
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized || seen != nil {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}
