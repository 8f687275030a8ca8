package dto

import "hims.app/advisor/internal/model"

type FieldCheckRequest struct {
	Module  string         `json:"module" binding:"required"`
	Field   string         `json:"field" binding:"required"`
	Value   string         `json:"value"`
	Context map[string]any `json:"context,omitempty"`
}

type FieldCheckResponse struct {
	Warnings []model.FieldWarning `json:"warnings"`
}

type HealthResponse struct {
	Status string                `json:"status"`
	Health *model.HealthSnapshot `json:"health"`
}

type InsightsResponse struct {
	Status   string            `json:"status"`
	Insights *model.InsightSet `json:"insights"`
}
