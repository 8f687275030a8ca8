package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hims.app/advisor/internal/http/dto"
	"hims.app/advisor/internal/service"
)

const defaultMutationSource = "api"

type EventsHandler struct {
	mutations service.MutationService
}

func NewEventsHandler(mutations service.MutationService) *EventsHandler {
	return &EventsHandler{mutations: mutations}
}

// DataChanged is called by the services that write clinical configuration.
// The body is optional.
func (h *EventsHandler) DataChanged(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.DataChangedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.WarnContext(ctx, "invalid data-changed request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Source == "" {
		req.Source = defaultMutationSource
	}

	if err := h.mutations.NotifyChanged(ctx, req.Source); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "data change applied locally but not relayed"})
		return
	}

	c.JSON(http.StatusAccepted, dto.DataChangedResponse{Status: "accepted"})
}
