package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StoreStats exposes counters from the record store.
type StoreStats interface {
	CorruptLoads() uint64
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	StorageBackend string `json:"storage_backend"`
	CorruptLoads   uint64 `json:"corrupt_loads"`
}

// HealthHandler reports liveness and store counters
type HealthHandler struct {
	service string
	backend string
	stats   StoreStats
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(service, backend string, stats StoreStats) *HealthHandler {
	return &HealthHandler{service: service, backend: backend, stats: stats}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	var corrupt uint64
	if h.stats != nil {
		corrupt = h.stats.CorruptLoads()
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:         "healthy",
		Service:        h.service,
		StorageBackend: h.backend,
		CorruptLoads:   corrupt,
	})
}
