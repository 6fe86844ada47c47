package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"avplan/internal/domain"
	"avplan/internal/service"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

// AnalysisHandler handles plan analysis endpoints.
type AnalysisHandler struct {
	jobs     service.JobService
	maxBytes int64
}

// NewAnalysisHandler creates a new AnalysisHandler. maxBytes caps the upload size.
func NewAnalysisHandler(jobs service.JobService, maxBytes int64) *AnalysisHandler {
	return &AnalysisHandler{jobs: jobs, maxBytes: maxBytes}
}

// Analyze handles POST /api/v1/analyze
// @Summary Analyze an AV construction plan
// @Description Upload one plan (PDF or raster image). Returns the interpretation and links to the summary, pull sheet, BOM and verification artifacts.
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Plan file"
// @Success 200 {object} AnalyzeResponse
// @Failure 400 {object} ErrorResponse "Missing file or unsupported type"
// @Failure 413 {object} ErrorResponse "File too large"
// @Failure 422 {object} ErrorResponse "Unreadable or empty document"
// @Failure 504 {object} ErrorResponse "Time budget exhausted"
// @Router /analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleError(c, domain.ErrFileTooLarge)
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxBytes > 0 && header.Size > h.maxBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
		return
	}

	result, err := h.jobs.Analyze(c.Request.Context(), service.AnalyzeInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// InterpretRequest is the body of POST /api/v1/interpret.
type InterpretRequest struct {
	OCRText          string            `json:"ocr_text" binding:"required"`
	// Taxonomy maps extra abbreviations to device types for this request only.
	Taxonomy         map[string]string `json:"taxonomy,omitempty"`
	RequestPullSheet bool              `json:"request_pull_sheet"`
	RequestBOM       bool              `json:"request_bom"`
}

// InterpretResponse is the interpretation plus any requested text tables.
type InterpretResponse struct {
	*domain.InterpretationResult
	CablePullSheet string `json:"cable_pull_sheet,omitempty"`
	ReflectedBOM   string `json:"reflected_bom,omitempty"`
}

// Interpret handles POST /api/v1/interpret
// @Summary Interpret OCR text
// @Description Interpret already-extracted plan text without uploading a file. No artifacts are written.
// @Tags analysis
// @Accept json
// @Produce json
// @Param body body InterpretRequest true "OCR text"
// @Success 200 {object} InterpretAPIResponse
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Router /interpret [post]
func (h *AnalysisHandler) Interpret(c *gin.Context) {
	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OCRText) == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "ocr_text is required")
		return
	}

	out, err := h.jobs.InterpretText(c.Request.Context(), service.InterpretTextInput{
		Text:             req.OCRText,
		Taxonomy:         req.Taxonomy,
		RequestPullSheet: req.RequestPullSheet,
		RequestBOM:       req.RequestBOM,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, InterpretResponse{
		InterpretationResult: out.Result,
		CablePullSheet:       out.PullSheet,
		ReflectedBOM:         out.BOM,
	})
}
