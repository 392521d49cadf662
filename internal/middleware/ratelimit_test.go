package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rps float64, burst int) *gin.Engine {
	router := gin.New()
	router.Use(RateLimit(rps, burst))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func requestFrom(router *gin.Engine, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_AllowsNormalTraffic(t *testing.T) {
	router := newLimitedRouter(10, 5)

	for i := 0; i < 5; i++ {
		if code := requestFrom(router, "10.0.0.1:1234"); code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, code)
		}
	}
}

func TestRateLimit_RejectsExcessiveTraffic(t *testing.T) {
	router := newLimitedRouter(1, 2)

	for i := 0; i < 2; i++ {
		requestFrom(router, "10.0.0.1:1234")
	}

	if code := requestFrom(router, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	router := newLimitedRouter(1, 1)

	if code := requestFrom(router, "10.0.0.1:1111"); code != http.StatusOK {
		t.Errorf("client A first request: expected 200, got %d", code)
	}
	// Same IP, different port: still the same client.
	if code := requestFrom(router, "10.0.0.1:2222"); code != http.StatusTooManyRequests {
		t.Errorf("client A second request: expected 429, got %d", code)
	}
	if code := requestFrom(router, "10.0.0.2:1111"); code != http.StatusOK {
		t.Errorf("client B first request: expected 200, got %d", code)
	}
}
