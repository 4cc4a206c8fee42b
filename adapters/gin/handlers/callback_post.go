package handlers

import (
	"errors"
	"net/http"

	"github.com/cidali/bookstore/adapters/ginutil"
	core "github.com/cidali/bookstore/core"
	"github.com/gin-gonic/gin"
)

// HandleCallbackPOST processes a payment confirmation from the provider (or
// a test simulator): it mints the entitlement token, sends the notification
// emails, and returns the access link.
func HandleCallbackPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCallback) {
			ginutil.TooMany(c)
			return
		}
		body, err := c.GetRawData()
		if err != nil {
			ginutil.BadRequest(c, "unreadable body")
			return
		}

		link, err := svc.ProcessCallback(c.Request.Context(), body)
		if err != nil {
			if errors.Is(err, core.ErrNoPhone) {
				ginutil.BadRequest(c, "No phone in callback")
				return
			}
			ginutil.ServerErrWithLog(c, "Callback failed", err, "payment callback failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Payment processed successfully.",
			"ebookLink": link,
		})
	}
}
