package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"avplan/internal/handler"
)

func TestHealthHandler_Liveness(t *testing.T) {
	h := handler.NewHealthHandler()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/healthz", nil)

	h.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := handler.ReadinessCheck{Name: "storage", Check: func(context.Context) error { return nil }}
	down := handler.ReadinessCheck{Name: "taxonomy", Check: func(context.Context) error { return errors.New("not loaded") }}

	t.Run("all pass", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/readyz", nil)
		handler.NewHealthHandler(ok).Readiness(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("one fails", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/readyz", nil)
		handler.NewHealthHandler(ok, down).Readiness(c)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "taxonomy: not loaded")
	})
}
