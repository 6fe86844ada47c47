package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"avplan/internal/domain"
	"avplan/internal/logger"
	"avplan/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response. JobID is set when the error
// is a failed job.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Job-level timeout and cancellation are checked first since they wrap the
// stage error that was in flight.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrJobTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT", "job time budget exhausted before completion"
	case errors.Is(err, domain.ErrJobCanceled):
		return http.StatusRequestTimeout, "CANCELED", "job canceled"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png, tiff, gif, bmp, webp"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity, "UNREADABLE_DOCUMENT", "document is corrupt, encrypted, or not in a supported format"
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "EMPTY_DOCUMENT", "no page yielded readable content"
	case errors.Is(err, domain.ErrLowConfidenceDocument):
		return http.StatusUnprocessableEntity, "LOW_CONFIDENCE_DOCUMENT", "text recognition confidence is too low across the whole document"
	case errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusBadGateway, "EXTRACTION_FAILED", "text extraction backend failed"
	case errors.Is(err, domain.ErrInterpretationTimeout):
		return http.StatusGatewayTimeout, "INTERPRETATION_TIMEOUT", "interpretation call exceeded its deadline"
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "MALFORMED_RESPONSE", "interpretation response could not be parsed"
	case errors.Is(err, domain.ErrInterpretationFailed):
		return http.StatusBadGateway, "INTERPRETATION_FAILED", "interpretation backend failed"
	case errors.Is(err, domain.ErrPublishFailed):
		return http.StatusInternalServerError, "PUBLISH_FAILED", "artifact upload to storage failed"
	case errors.Is(err, domain.ErrRender):
		return http.StatusInternalServerError, "RENDER_ERROR", "artifact rendering failed"
	case errors.Is(err, domain.ErrInvalidStageInput):
		return http.StatusInternalServerError, "INVALID_STAGE_INPUT", "an intermediate result failed validation"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		log := logger.WithRequestID(middleware.GetRequestID(c))
		log.Error().Err(err).Str("code", code).Msg("request failed")
	}
	apiErr := &APIError{Code: code, Message: msg}
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) {
		apiErr.JobID = jobErr.JobID.String()
		apiErr.Stage = string(jobErr.Stage)
	}
	c.JSON(status, APIResponse{Success: false, Error: apiErr})
}
