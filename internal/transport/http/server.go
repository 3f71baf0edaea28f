package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/auth"
	"github.com/nkoval/dmrelay-server/internal/config"
	"github.com/nkoval/dmrelay-server/internal/contacts"
	"github.com/nkoval/dmrelay-server/internal/core"
	"github.com/nkoval/dmrelay-server/internal/store"
)

// NewServer builds the HTTP server: enrollment, page view data, and the
// live WebSocket channel.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, deriver *contacts.Deriver, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(authService, st, deriver, logger)
	ws := NewWSHandler(hub, authService, logger)

	router.GET("/health", healthHandler)
	router.POST("/api/signin", api.SignIn)

	authed := router.Group("/api", AuthMiddleware(authService, logger))
	authed.GET("/home", api.Home)
	authed.GET("/chat/:id", api.Chat)

	router.GET("/ws", ws.Handle)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
