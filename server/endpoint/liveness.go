package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness answers the liveness probe: the process is up and serving HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName})
	}
}
