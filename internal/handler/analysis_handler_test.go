package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"avplan/internal/domain"
	"avplan/internal/handler"
	"avplan/internal/middleware"
	"avplan/internal/service"
	"avplan/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAnalysisHandler_Analyze_Success(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 1<<20)

	jobID := uuid.New()
	jobs.On("Analyze", mock.Anything, mock.MatchedBy(func(in service.AnalyzeInput) bool {
		return in.Filename == "Level 2 AV.pdf" && string(in.Content) == "%PDF-1.4 test"
	})).Return(&domain.JobResult{
		JobID:   jobID,
		State:   domain.JobCompleted,
		Summary: "Two amplifiers",
	}, nil)

	body, ct := multipartBody(t, "file", "Level 2 AV.pdf", []byte("%PDF-1.4 test"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	c.Request.Header.Set("Content-Type", ct)

	h.Analyze(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), jobID.String())
	jobs.AssertExpectations(t)
}

func TestAnalysisHandler_Analyze_NoFile(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 1<<20)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/analyze", nil)

	h.Analyze(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decode(t, w).Error.Code)
	jobs.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestAnalysisHandler_Analyze_TooLarge(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 16)

	body, ct := multipartBody(t, "file", "plan.pdf", bytes.Repeat([]byte("x"), 64))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	c.Request.Header.Set("Content-Type", ct)

	h.Analyze(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decode(t, w).Error.Code)
	jobs.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestAnalysisHandler_Analyze_JobFailure(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 1<<20)

	jobID := uuid.New()
	jobErr := domain.NewJobError(jobID, domain.JobExtracting, fmt.Errorf("page 1: %w", domain.ErrUnreadableDocument))
	jobs.On("Analyze", mock.Anything, mock.Anything).Return(nil, jobErr)

	body, ct := multipartBody(t, "file", "plan.pdf", []byte("garbage"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	c.Request.Header.Set("Content-Type", ct)

	h.Analyze(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNREADABLE_DOCUMENT", resp.Error.Code)
	assert.Equal(t, jobID.String(), resp.Error.JobID)
	assert.Equal(t, string(domain.JobExtracting), resp.Error.Stage)
}

func TestAnalysisHandler_Interpret_Success(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 0)

	jobs.On("InterpretText", mock.Anything, service.InterpretTextInput{
		Text:             "AMP-1 feeds SPK-1",
		RequestPullSheet: true,
	}).Return(&service.InterpretTextOutput{
		Result: &domain.InterpretationResult{
			Summary: "One amplifier feeding one loudspeaker",
			Devices: []domain.Device{{ID: "D001", Name: "AMP-1"}, {ID: "D002", Name: "SPK-1"}},
		},
		PullSheet: "| CABLE ID |",
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/interpret",
		strings.NewReader(`{"ocr_text":"AMP-1 feeds SPK-1","request_pull_sheet":true}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Interpret(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Summary        string          `json:"summary"`
			Devices        []domain.Device `json:"devices"`
			CablePullSheet string          `json:"cable_pull_sheet"`
			ReflectedBOM   *string         `json:"reflected_bom"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "One amplifier feeding one loudspeaker", resp.Data.Summary)
	assert.Len(t, resp.Data.Devices, 2)
	assert.Equal(t, "| CABLE ID |", resp.Data.CablePullSheet)
	assert.Nil(t, resp.Data.ReflectedBOM)
	jobs.AssertExpectations(t)
}

func TestAnalysisHandler_Interpret_MissingText(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/interpret", strings.NewReader(`{"request_bom":true}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Interpret(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w).Error.Code)
}

func TestAnalysisHandler_Interpret_BlankText(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 0)

	for _, body := range []string{`{"ocr_text":""}`, `{"ocr_text":"   \n\t  "}`} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/interpret", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Interpret(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "INVALID_REQUEST", decode(t, w).Error.Code, body)
	}
	jobs.AssertNotCalled(t, "InterpretText", mock.Anything, mock.Anything)
}

func TestAnalysisHandler_Interpret_RequestTaxonomy(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 0)

	jobs.On("InterpretText", mock.Anything, service.InterpretTextInput{
		Text:     "VCM-1 in CONF RM 201",
		Taxonomy: map[string]string{"VCM": "Volume Control Module"},
	}).Return(&service.InterpretTextOutput{Result: &domain.InterpretationResult{Summary: "ok"}}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/interpret",
		strings.NewReader(`{"ocr_text":"VCM-1 in CONF RM 201","taxonomy":{"VCM":"Volume Control Module"}}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Interpret(c)

	assert.Equal(t, http.StatusOK, w.Code)
	jobs.AssertExpectations(t)
}

func TestHandleError_LogsServerErrorsWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.RequestIDKey, "req-42")

	handler.HandleError(c, fmt.Errorf("put object: %w", domain.ErrPublishFailed))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "PUBLISH_FAILED", entry["code"])
	assert.Equal(t, "request failed", entry["message"])

	buf.Reset()
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	handler.HandleError(c, domain.ErrUnsupportedFileType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, buf.String())
}

func TestAnalysisHandler_Interpret_Malformed(t *testing.T) {
	jobs := new(mocks.MockJobService)
	h := handler.NewAnalysisHandler(jobs, 0)
	jobs.On("InterpretText", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("after 2 attempts: %w", domain.ErrMalformedResponse))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/interpret", strings.NewReader(`{"ocr_text":"x"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Interpret(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "MALFORMED_RESPONSE", decode(t, w).Error.Code)
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unsupported", domain.ErrUnsupportedFileType, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
		{"too large", domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"empty", domain.ErrEmptyDocument, http.StatusUnprocessableEntity, "EMPTY_DOCUMENT"},
		{"low confidence", domain.ErrLowConfidenceDocument, http.StatusUnprocessableEntity, "LOW_CONFIDENCE_DOCUMENT"},
		{"extraction", domain.ErrExtractionFailed, http.StatusBadGateway, "EXTRACTION_FAILED"},
		{"interpretation timeout", domain.ErrInterpretationTimeout, http.StatusGatewayTimeout, "INTERPRETATION_TIMEOUT"},
		{"interpretation failed", domain.ErrInterpretationFailed, http.StatusBadGateway, "INTERPRETATION_FAILED"},
		{"render", domain.ErrRender, http.StatusInternalServerError, "RENDER_ERROR"},
		{"publish", domain.ErrPublishFailed, http.StatusInternalServerError, "PUBLISH_FAILED"},
		{"job timeout wins", fmt.Errorf("%w: %w", domain.ErrJobTimeout, domain.ErrInterpretationFailed), http.StatusGatewayTimeout, "TIMEOUT"},
		{"canceled wins", fmt.Errorf("%w: %w", domain.ErrJobCanceled, context.Canceled), http.StatusRequestTimeout, "CANCELED"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, msg := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}
