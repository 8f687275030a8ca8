package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hims.app/advisor/internal/http/dto"
	"hims.app/advisor/internal/model"
)

type RuleEvaluator interface {
	Evaluate(module, field, value string, ctx map[string]any) []model.FieldWarning
}

type FieldHandler struct {
	rules RuleEvaluator
}

func NewFieldHandler(rules RuleEvaluator) *FieldHandler {
	return &FieldHandler{rules: rules}
}

// Check runs the local rules only. Remote checks need a tab.
func (h *FieldHandler) Check(c *gin.Context) {
	var req dto.FieldCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid field check request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	warnings := h.rules.Evaluate(req.Module, req.Field, req.Value, req.Context)
	if warnings == nil {
		warnings = []model.FieldWarning{}
	}
	c.JSON(http.StatusOK, dto.FieldCheckResponse{Warnings: warnings})
}
