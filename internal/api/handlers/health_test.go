package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Conceptual-Machines/journey-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv(config.EnvOpenAIAPIKey, "")

	cfg, err := config.Load()
	require.NoError(t, err)

	router := gin.New()
	router.GET("/health", NewHealthHandler(cfg).HealthCheck)

	get := func() map[string]any {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	body := get()
	assert.Equal(t, "healthy", body["status"])
	llmInfo := body["llm"].(map[string]any)
	assert.Equal(t, "openai", llmInfo["provider"])
	assert.Equal(t, false, llmInfo["credential_present"])

	t.Setenv(config.EnvOpenAIAPIKey, "sk-now")
	llmInfo = get()["llm"].(map[string]any)
	assert.Equal(t, true, llmInfo["credential_present"])
}

func TestGetMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/metrics", NewMetricsHandler("1.2.3", "gpt-4", []string{"customer-journey", "customer-pains"}).GetMetrics)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "gpt-4", resp.API.Model)
	assert.Equal(t, []string{"customer-journey", "customer-pains"}, resp.API.Tasks)
	assert.NotEmpty(t, resp.Runtime.GoVersion)
	assert.False(t, resp.StartedAt.IsZero())
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5s", formatUptime(5*time.Second))
	assert.Equal(t, "2m3.46s", formatUptime(123*time.Second+456*time.Millisecond))
	assert.Equal(t, "1h1m1s", formatUptime(3661*time.Second+2*time.Millisecond))
}
