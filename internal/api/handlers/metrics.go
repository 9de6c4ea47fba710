package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

const bytesPerMB = 1 << 20

// MetricsHandler reports build, uptime and runtime figures for GET /api/metrics.
// Counters and latency histograms live on the Prometheus /metrics endpoint.
type MetricsHandler struct {
	started time.Time
	version string
	model   string
	tasks   []string
}

// NewMetricsHandler creates a metrics handler; uptime counts from this call
func NewMetricsHandler(version, model string, tasks []string) *MetricsHandler {
	return &MetricsHandler{
		started: time.Now(),
		version: version,
		model:   model,
		tasks:   tasks,
	}
}

// MetricsResponse is the body of GET /api/metrics
type MetricsResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	StartedAt     time.Time    `json:"started_at"`
	Uptime        string       `json:"uptime"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Runtime       RuntimeStats `json:"runtime"`
	API           APIInfo      `json:"api"`
}

// APIInfo describes what this deployment generates
type APIInfo struct {
	Model string   `json:"model"`
	Tasks []string `json:"tasks"`
}

// RuntimeStats are Go runtime statistics
type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	Goroutines   int    `json:"goroutines"`
	HeapAllocMB  uint64 `json:"heap_alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// formatUptime rounds to hundredths of a second so the string stays readable
func formatUptime(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := time.Since(h.started)
	c.JSON(http.StatusOK, MetricsResponse{
		Status:        "healthy",
		Version:       h.version,
		StartedAt:     h.started.UTC(),
		Uptime:        formatUptime(uptime),
		UptimeSeconds: uptime.Seconds(),
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			Goroutines:   runtime.NumGoroutine(),
			HeapAllocMB:  mem.HeapAlloc / bytesPerMB,
			TotalAllocMB: mem.TotalAlloc / bytesPerMB,
			NumGC:        mem.NumGC,
		},
		API: APIInfo{Model: h.model, Tasks: h.tasks},
	})
}
