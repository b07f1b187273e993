package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/shopfinder/internal/authorization"
	obscontext "github.com/smallbiznis/shopfinder/internal/observability/context"
)

const (
	contextUserIDKey = "user_id"
	contextRoleKey   = "role"
	bearerPrefix     = "Bearer "
)

// AuthRequired accepts an HMAC-signed bearer token carrying user_id and
// role claims. A token without a role is treated as a regular user.
func (s *Server) AuthRequired() gin.HandlerFunc {
	secret := []byte(strings.TrimSpace(s.cfg.AuthJWTSecret))
	return func(c *gin.Context) {
		if len(secret) == 0 {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := claimString(claims, "user_id")
		if err != nil || userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		role, _ := claimString(claims, "role")
		role = strings.ToLower(role)
		if role == "" {
			role = authorization.RoleUser
		}

		c.Set(contextUserIDKey, userID)
		c.Set(contextRoleKey, role)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), role, userID))
		c.Next()
	}
}

func claimString(claims jwt.MapClaims, name string) (string, error) {
	switch value := claims[name].(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(value), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	default:
		return "", fmt.Errorf("claim %s: unsupported type %T", name, value)
	}
}

func userIDFromContext(c *gin.Context) (string, error) {
	userID := strings.TrimSpace(c.GetString(contextUserIDKey))
	if userID == "" {
		return "", ErrUnauthorized
	}
	return userID, nil
}

func actorFromContext(c *gin.Context) (authorization.Actor, error) {
	userID, err := userIDFromContext(c)
	if err != nil {
		return authorization.Actor{}, err
	}
	return authorization.Actor{UserID: userID, Role: c.GetString(contextRoleKey)}, nil
}
