package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health reports the state of the server and its dependencies. Optional
// services that are down are listed but do not fail the check.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "localhub",
	}
	if h.validator == nil {
		c.JSON(http.StatusOK, response)
		return
	}

	services, healthy := h.validator.Status(c.Request.Context())
	response["services"] = services
	if !healthy {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Metrics exposes the Prometheus registry
// GET /metrics
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
