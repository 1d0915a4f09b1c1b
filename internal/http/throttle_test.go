package http

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/plibrary/internal/logging"
)

func setupThrottleRouter(t *testing.T, burst int) (*gin.Engine, *Throttle) {
	t.Helper()

	throttle := NewThrottle(0.001, burst, logging.Discard())
	t.Cleanup(throttle.Stop)

	router := gin.New()
	router.Use(throttle.Handler())
	router.GET("/index", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.POST("/index/book_increment", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return router, throttle
}

func TestThrottle_LimitsMutatingRequests(t *testing.T) {
	router, _ := setupThrottleRouter(t, 2)

	assert.Equal(t, http.StatusOK, submitForm(router, "/index/book_increment", url.Values{}).Code)
	assert.Equal(t, http.StatusOK, submitForm(router, "/index/book_increment", url.Values{}).Code)

	w := submitForm(router, "/index/book_increment", url.Values{})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestThrottle_NeverLimitsReads(t *testing.T) {
	router, _ := setupThrottleRouter(t, 1)

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, get(router, "/index").Code)
	}
}

func TestThrottle_CleanupDropsIdleClients(t *testing.T) {
	_, throttle := setupThrottleRouter(t, 1)

	throttle.limiter("10.0.0.1")
	throttle.limiter("10.0.0.2")
	throttle.limiters["10.0.0.1"].lastSeen = time.Now().Add(-2 * throttleIdleExpiry)

	throttle.cleanup(time.Now())

	assert.NotContains(t, throttle.limiters, "10.0.0.1")
	assert.Contains(t, throttle.limiters, "10.0.0.2")
}
