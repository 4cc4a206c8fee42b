package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleRootGET is the plain-text liveness probe.
func HandleRootGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "CIDALI BookStore backend running")
	}
}
