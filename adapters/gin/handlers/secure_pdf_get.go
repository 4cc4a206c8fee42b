package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/cidali/bookstore/adapters/ginutil"
	"github.com/cidali/bookstore/content"
	"github.com/gin-gonic/gin"
)

// HandleSecurePDFGET streams the protected document to a holder of a valid
// token. The response must never be cached or sniffed: the token is the only
// thing standing between the file and the world.
func HandleSecurePDFGET(gate *content.Gate, rl ginutil.RateLimiter) gin.HandlerFunc {
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

		f, err := gate.Open(filename)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				ginutil.NotFoundText(c)
				return
			}
			ginutil.ServerErrWithLog(c, "could not open file", err, "content open failed")
			return
		}
		defer f.Close()

		header := c.Writer.Header()
		header.Set("Content-Type", "application/pdf")
		header.Set("Content-Disposition", "inline; filename="+filename)
		header.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		header.Set("Pragma", "no-cache")
		header.Set("Expires", "0")
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "SAMEORIGIN")
		c.Status(http.StatusOK)
		io.Copy(c.Writer, f)
	}
}
