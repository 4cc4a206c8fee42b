package handlers

import (
	"net/http"

	"github.com/cidali/bookstore/adapters/ginutil"
	core "github.com/cidali/bookstore/core"
	"github.com/gin-gonic/gin"
)

type deliveryRequest struct {
	Phone           string  `json:"phone"`
	TransactionCode string  `json:"transactionCode"`
	Address         string  `json:"address"`
	Amount          float64 `json:"amount"`
}

// HandleDeliveryPOST triggers a push-payment request for a delivery fee.
// All four fields are required.
func HandleDeliveryPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLDelivery) {
			ginutil.TooMany(c)
			return
		}
		var req deliveryRequest
		if err := c.ShouldBindJSON(&req); err != nil ||
			req.Phone == "" || req.TransactionCode == "" || req.Address == "" || req.Amount == 0 {
			ginutil.BadRequest(c, "Missing required fields")
			return
		}

		resp, err := svc.InitiateDelivery(c.Request.Context(), req.Phone, req.TransactionCode, req.Address, req.Amount)
		if err != nil {
			ginutil.ServerErrWithLog(c, "Delivery STK push failed", err, "delivery stk push failed")
			return
		}
		c.Data(http.StatusOK, "application/json", resp)
	}
}
