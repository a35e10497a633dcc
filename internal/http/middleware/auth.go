package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

// Claims is the access-token payload. Platform roles live in app_metadata;
// the top-level role is the database role ("authenticated") and is only a
// fallback.
type Claims struct {
	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(strings.TrimSpace(jwtSecret)),
	}
}

// Attach parses an optional bearer token. Anonymous requests continue with
// only the client IP; a token that does not verify is rejected with 401.
func (am *AuthMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &ctxutil.RequestData{ClientIP: c.ClientIP()}
		if tokenString := extractBearer(c); tokenString != "" {
			claims, err := am.parse(tokenString)
			if err != nil {
				am.log.Debug("Rejected bearer token", "error", err)
				c.Abort()
				response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid or expired token"))
				return
			}
			rd.UserID = claims.userID
			rd.Role = claims.role
			rd.Email = claims.email
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

type parsedClaims struct {
	userID uuid.UUID
	role   string
	email  string
}

func (am *AuthMiddleware) parse(tokenString string) (*parsedClaims, error) {
	if len(am.secret) == 0 {
		return nil, errors.New("AUTH_JWT_SECRET is not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	role := claims.AppMetadata.Role
	if role == "" {
		role = claims.Role
	}
	return &parsedClaims{userID: userID, role: role, email: strings.ToLower(strings.TrimSpace(claims.Email))}, nil
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
