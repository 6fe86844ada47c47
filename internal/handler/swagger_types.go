package handler

import (
	"avplan/internal/domain"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// AnalyzeResponse is the success envelope of POST /analyze.
type AnalyzeResponse struct {
	Success bool             `json:"success" example:"true"`
	Data    domain.JobResult `json:"data"`
}

// InterpretAPIResponse is the success envelope of POST /interpret.
type InterpretAPIResponse struct {
	Success bool              `json:"success" example:"true"`
	Data    InterpretResponse `json:"data"`
}

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Success bool     `json:"success" example:"false"`
	Error   APIError `json:"error"`
}
