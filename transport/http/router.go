package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/warden/service"
)

// SetupRouter sets up the Gin router for the contract backend
func SetupRouter(authService *service.AuthService, tables *service.Tables, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	// Create handlers
	handlers := NewAdminHandlers(authService, tables, logger)

	router.GET("/instance/status", handlers.Status)

	admin := router.Group("/admin")
	{
		admin.POST("/auth", handlers.Auth)
	}

	// Protected admin routes
	protected := router.Group("/admin")
	protected.Use(AuthMiddleware(authService))
	{
		protected.GET("/session", handlers.Session)
		protected.POST("/logout", handlers.Logout)
		protected.GET("/tables/:table", handlers.ListRows)
		protected.POST("/tables/:table/rows", handlers.InsertRow)
	}

	return router
}
