package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/moodshop-api/internal/logging"
	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/service"
)

const claimsKey = "sessionClaims"

type TokenParser interface {
	ParseToken(ctx context.Context, raw string) (*service.SessionClaims, error)
}

// OptionalAuth accepts anonymous requests but rejects a bearer token that
// does not verify.
func OptionalAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := parser.ParseToken(c.Request.Context(), header[7:])
		if err != nil {
			if !errors.Is(err, service.ErrAuth) {
				logging.FromContext(c.Request.Context()).Error("parse token", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetClaims(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func GetClaims(c *gin.Context) *service.SessionClaims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*service.SessionClaims)
	return claims
}

func GetUserID(c *gin.Context) uuid.UUID {
	claims := GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	id, _ := uuid.Parse(claims.Subject)
	return id
}

// GetSession combines the session id with the verified login, if any.
func GetSession(c *gin.Context) model.Session {
	s := model.Session{ID: GetSessionID(c)}
	if claims := GetClaims(c); claims != nil {
		s.LoggedIn = true
		s.UserID = GetUserID(c)
		s.Email = claims.Email
	}
	return s
}
