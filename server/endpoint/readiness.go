package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/reactivekit/component"
)

// Readiness answers the readiness probe. The service is not ready while any
// component reports unhealthy; degraded components still accept traffic.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				if h.Status == component.StatusUnhealthy {
					c.JSON(http.StatusServiceUnavailable, gin.H{
						"status":  "not_ready",
						"service": serviceName,
						"reason":  h.Name,
					})
					return
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
	}
}
