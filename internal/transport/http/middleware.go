package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/auth"
)

const (
	// CredentialCookie is the cookie carrying the session credential.
	CredentialCookie = "auth_token"
	// ContextKeyUsername is the context key for the authenticated username.
	ContextKeyUsername = "username"
)

// credentialFromRequest extracts the session credential from the
// auth_token cookie or, failing that, a bearer Authorization header.
func credentialFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CredentialCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}

	return ""
}

// AuthMiddleware creates a middleware that verifies the session credential.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := credentialFromRequest(c.Request)
		if token == "" {
			logger.Debug().Msg("missing credential")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
			c.Abort()
			return
		}

		username, err := authService.Verify(token)
		if err != nil {
			logger.Debug().Err(err).Msg("credential rejected")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUsername, username)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
