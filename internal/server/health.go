package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// IndexCounter reports how many vectors the index holds.
type IndexCounter interface {
	Count(ctx context.Context) (int64, error)
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Chunks    int       `json:"chunks"`
	Index     string    `json:"index"`
	Vectors   int64     `json:"vectors"`
}

type HealthHandler struct {
	serviceName string
	version     string
	chunks      int
	index       IndexCounter
}

func NewHealthHandler(serviceName, version string, chunks int, index IndexCounter) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		chunks:      chunks,
		index:       index,
	}
}

// HealthCheck reports "degraded" when the index is unreachable or empty,
// since every question would then be refused.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	indexStatus := "disabled"
	var vectors int64

	if h.index != nil {
		countCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		n, err := h.index.Count(countCtx)
		switch {
		case err != nil:
			indexStatus = "down"
			status = "degraded"
		case n == 0:
			indexStatus = "empty"
			status = "degraded"
		default:
			indexStatus = "up"
			vectors = n
		}
	}
	if h.chunks == 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Chunks:    h.chunks,
		Index:     indexStatus,
		Vectors:   vectors,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.HealthCheck)
	r.GET("/health", h.HealthCheck)
}
