package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quidbooks/server/internal/models"
	"github.com/quidbooks/server/internal/service"
)

// TokenFromHeader extracts the bearer token from the Authorization header,
// or "" when none is present.
func TokenFromHeader(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// AuthMiddleware returns a Gin middleware that validates the session token
// against the session store and rejects the request early on failure. The
// validated token and user id are placed in the request context.
func AuthMiddleware(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromHeader(c)

		session, err := svc.ValidateSession(c.Request.Context(), token)
		if err != nil {
			code := "INVALID_SESSION"
			switch err {
			case service.ErrNoActiveSession:
				code = "NO_ACTIVE_SESSION"
			case service.ErrSessionExpired:
				code = "SESSION_EXPIRED"
			case service.ErrInvalidSession:
				code = "INVALID_SESSION"
			default:
				c.JSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:   "INTERNAL_ERROR",
					Message: "session validation failed",
				})
				c.Abort()
				return
			}

			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   code,
				Message: err.Error(),
			})
			c.Abort()
			return
		}

		c.Set("sessionToken", token)
		c.Set("userId", session.UserID)
		c.Next()
	}
}
