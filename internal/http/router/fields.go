package router

import (
	"github.com/gin-gonic/gin"

	"hims.app/advisor/internal/http/handler"
)

func FieldRouter(router *gin.RouterGroup, h *handler.FieldHandler) {
	router.POST("/check", h.Check)
}
