package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hims.app/advisor/common/logger"
	"hims.app/advisor/internal/http/dto"
	"hims.app/advisor/internal/insight"
	"hims.app/advisor/internal/model"
)

type HealthSource interface {
	Refresh(ctx context.Context, scope model.Scope, force bool) (*model.HealthSnapshot, bool)
	Status(scope model.Scope) insight.Status
}

type InsightSource interface {
	Refresh(ctx context.Context, key insight.InsightKey, force bool) (*model.InsightSet, bool)
	Status(key insight.InsightKey) insight.Status
}

// ScopeHandler serves the cached health and insight snapshots to callers
// that poll instead of holding a websocket.
type ScopeHandler struct {
	health   HealthSource
	insights InsightSource
}

func NewScopeHandler(health HealthSource, insights InsightSource) *ScopeHandler {
	return &ScopeHandler{health: health, insights: insights}
}

func (h *ScopeHandler) Health(c *gin.Context) {
	scope := model.Scope(c.Param("scope"))
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Scope: logger.Ptr(scope.String())})

	snapshot, ok := h.health.Refresh(ctx, scope, forceParam(c))
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "health unavailable"})
		return
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status: string(h.health.Status(scope)),
		Health: snapshot,
	})
}

func (h *ScopeHandler) Insights(c *gin.Context) {
	key := insight.InsightKey{
		Scope:  model.Scope(c.Param("scope")),
		Module: c.Param("module"),
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Scope:  logger.Ptr(key.Scope.String()),
		Module: logger.Ptr(key.Module),
	})

	set, ok := h.insights.Refresh(ctx, key, forceParam(c))
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "insights unavailable"})
		return
	}

	c.JSON(http.StatusOK, dto.InsightsResponse{
		Status:   string(h.insights.Status(key)),
		Insights: set,
	})
}

func forceParam(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.Query("force"))
	return force
}
