package router

import (
	"github.com/gin-gonic/gin"

	"hims.app/advisor/internal/http/handler"
)

func EventsRouter(router *gin.RouterGroup, h *handler.EventsHandler) {
	router.POST("/data-changed", h.DataChanged)
}
