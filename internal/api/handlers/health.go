package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/journey-api/internal/config"
	"github.com/Conceptual-Machines/journey-api/internal/llm"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness and whether generation can run
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a health handler
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// HealthCheck returns the health status of the API. The service stays healthy
// without a credential; generation calls then fail with config_missing.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	provider := llm.ResolveProviderName(h.cfg.LLMProvider, h.cfg.LLMModel)

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"llm": gin.H{
			"provider":           provider,
			"model":              h.cfg.LLMModel,
			"credential_present": h.cfg.Credential(provider) != "",
			"timeout_seconds":    h.cfg.GenerationTimeout.Seconds(),
		},
	})
}
