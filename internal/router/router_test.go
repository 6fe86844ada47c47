package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"avplan/internal/domain"
	"avplan/internal/handler"
	"avplan/internal/router"
	"avplan/internal/service"
	"avplan/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSetup_Routes(t *testing.T) {
	jobs := new(mocks.MockJobService)
	jobs.On("InterpretText", mock.Anything, mock.AnythingOfType("service.InterpretTextInput")).
		Return(&service.InterpretTextOutput{Result: &domain.InterpretationResult{Summary: "ok"}}, nil)

	r := router.Setup(handler.NewAnalysisHandler(jobs, 1<<20), handler.NewHealthHandler(), []string{"http://localhost:3000"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	body, _ := json.Marshal(map[string]any{"ocr_text": "AMP-1 feeds SPK-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/interpret", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	jobs.AssertExpectations(t)
}

func TestSetup_UnknownRoute(t *testing.T) {
	r := router.Setup(handler.NewAnalysisHandler(new(mocks.MockJobService), 0), handler.NewHealthHandler(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetup_SwaggerDoc(t *testing.T) {
	r := router.Setup(handler.NewAnalysisHandler(new(mocks.MockJobService), 0), handler.NewHealthHandler(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/analyze")
}
