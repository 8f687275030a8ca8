package router

import (
	"github.com/gin-gonic/gin"

	"hims.app/advisor/internal/http/handler"
)

func ScopeRouter(router *gin.RouterGroup, h *handler.ScopeHandler) {
	router.GET("/:scope/health", h.Health)
	router.GET("/:scope/insights/:module", h.Insights)
}
