package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"interior-design-backend/internal/models"
)

const UserIDKey = "user_id"

// AuthMiddleware verifies a Supabase HS256 access token and stores its sub
// claim under UserIDKey. With an empty secret auth is disabled and every
// request passes through.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "missing authorization header", "")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "invalid authorization header format", "")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "empty token", "")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			errorMsg := err.Error()
			switch {
			case strings.Contains(errorMsg, "signature is invalid"):
				errorMsg = "token signature is invalid"
			case strings.Contains(errorMsg, "token is expired"):
				errorMsg = "token has expired"
			}
			abort(c, http.StatusUnauthorized, "invalid token", errorMsg)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			abort(c, http.StatusUnauthorized, "invalid token claims", "")
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			abort(c, http.StatusUnauthorized, "missing user id in token", "")
			return
		}

		c.Set(UserIDKey, sub)
		c.Next()
	}
}

// MatchesUser reports whether userID may be acted on by the caller. When
// auth is disabled there is no token user and any id is accepted.
func MatchesUser(c *gin.Context, userID string) bool {
	sub, ok := c.Get(UserIDKey)
	if !ok {
		return true
	}
	return sub.(string) == userID
}

func abort(c *gin.Context, status int, msg, details string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: msg, Details: details})
}
