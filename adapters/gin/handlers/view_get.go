package handlers

import (
	"net/http"

	"github.com/cidali/bookstore/adapters/ginutil"
	"github.com/cidali/bookstore/content"
	"github.com/gin-gonic/gin"
)

// HandleViewGET serves the fixed viewer shell after validating the token.
// The shell fetches the actual bytes through the secure-pdf endpoint with
// the same token, so the strict anti-caching headers live there, not here.
func HandleViewGET(gate *content.Gate, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLContent) {
			ginutil.TooMany(c)
			return
		}
		filename := c.Param("filename")
		token := c.Query("token")

		if err := gate.Authorize(c.Request.Context(), filename, token); err != nil {
			ginutil.Forbidden(c)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", content.ViewerHTML())
	}
}
