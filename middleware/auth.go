package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/SixtySecondsApp/onboarding-forms/logger"
)

const userKey = "user"

// Claims are the fields read from the auth platform's access tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates HS256 bearer tokens signed with secret and stores the
// claims on the context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)

		header := c.GetHeader("Authorization")
		if header == "" {
			log.Warn("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Warn("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			log.Warn("invalid or expired token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userKey, claims)
		c.Set(logger.GinKey, log.With(zap.String("user_id", claims.Subject)))
		c.Next()
	}
}

func ParseToken(secret, token string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("token secret not configured")
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// UserID returns the authenticated admin's id, or "" outside Auth.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userKey); ok {
		if claims, ok := v.(*Claims); ok {
			return claims.Subject
		}
	}
	return ""
}
