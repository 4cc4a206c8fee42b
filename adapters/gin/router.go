package bookgin

import (
	"github.com/cidali/bookstore/adapters/gin/handlers"
	"github.com/cidali/bookstore/adapters/ginutil"
	"github.com/cidali/bookstore/content"
	core "github.com/cidali/bookstore/core"
	"github.com/gin-gonic/gin"
)

// NewRouter assembles the HTTP surface.
func NewRouter(svc *core.Service, gate *content.Gate, rl ginutil.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), CORS())

	r.GET("/", handlers.HandleRootGET())

	api := r.Group("/api")
	api.POST("/mpesa/stkpush", handlers.HandleStkPushPOST(svc, rl))
	api.POST("/mpesa/callback", handlers.HandleCallbackPOST(svc, rl))
	api.POST("/mpesa/delivery", handlers.HandleDeliveryPOST(svc, rl))
	api.GET("/secure-pdf/:filename", handlers.HandleSecurePDFGET(gate, rl))
	api.GET("/view/:filename", handlers.HandleViewGET(gate, rl))

	return r
}
