package router

import (
	"github.com/gin-gonic/gin"

	"hims.app/advisor/internal/http/handler"
	"hims.app/advisor/internal/service"
)

type RouterConfig struct {
	OutboxSize     int
	AllowedOrigins []string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "tabs": services.Tabs().Len()})
	})

	wsHandler := handler.NewWSHandler(services, cfg.OutboxSize, cfg.AllowedOrigins)
	router.GET("/ws", wsHandler.Serve)

	v1 := router.Group("/api/v1")
	{
		eventsHandler := handler.NewEventsHandler(services.Mutations())
		EventsRouter(v1.Group("/events"), eventsHandler)

		scopeHandler := handler.NewScopeHandler(services.Health(), services.Insights())
		ScopeRouter(v1.Group("/scopes"), scopeHandler)

		fieldHandler := handler.NewFieldHandler(services.Rules())
		FieldRouter(v1.Group("/fields"), fieldHandler)
	}
}
