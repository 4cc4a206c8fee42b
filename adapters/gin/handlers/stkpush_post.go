package handlers

import (
	"net/http"

	"github.com/cidali/bookstore/adapters/ginutil"
	core "github.com/cidali/bookstore/core"
	"github.com/gin-gonic/gin"
)

type stkPushRequest struct {
	Phone  string  `json:"phone"`
	Amount float64 `json:"amount"`
	Email  string  `json:"email"`
}

// HandleStkPushPOST triggers a push-payment request for a book purchase and
// passes the provider's raw response through to the client.
func HandleStkPushPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLSTKPush) {
			ginutil.TooMany(c)
			return
		}
		var req stkPushRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Phone == "" {
			ginutil.BadRequest(c, "phone is required")
			return
		}

		resp, err := svc.InitiatePayment(c.Request.Context(), req.Phone, req.Amount, req.Email)
		if err != nil {
			ginutil.ServerErrWithLog(c, "STK push failed", err, "stk push failed")
			return
		}
		c.Data(http.StatusOK, "application/json", resp)
	}
}
