package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Rate-limit bucket names, one per externally triggered operation.
const (
	RLSTKPush  = "stkpush"
	RLCallback = "callback"
	RLDelivery = "delivery"
	RLContent  = "content"
)

// RateLimiter is the limiter contract handlers check before doing work.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// AllowNamed checks the limiter for this request, keyed by client IP.
// Limiter backend errors fail open: a Redis outage should not block
// payments, only stop throttling them.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(bucket, c.ClientIP())
	if err != nil {
		logrus.WithError(err).WithField("bucket", bucket).Warn("rate limiter check failed")
		return true
	}
	return ok
}

// TooMany responds 429.
func TooMany(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too_many_requests"})
}

// BadRequest responds 400 with a descriptive message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Forbidden responds 403 with a uniform body. Token failures all land here
// so callers can't probe which check failed.
func Forbidden(c *gin.Context) {
	c.String(http.StatusForbidden, "Invalid or expired token.")
}

// NotFoundText responds 404 for missing content.
func NotFoundText(c *gin.Context) {
	c.String(http.StatusNotFound, "File not found")
}

// ServerErrWithLog logs the underlying error and responds 500 with the
// message and details the client sees.
func ServerErrWithLog(c *gin.Context, msg string, err error, logMsg string) {
	logrus.WithError(err).Error(logMsg)
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": details})
}
