package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// httptest.NewRecorder captures the response without a real server, so
// middleware can be tested in isolation.

func init() {
	gin.SetMode(gin.TestMode)
}

func newAdminRouter(keys []string) *gin.Engine {
	router := gin.New()
	router.Use(AdminKeyAuth(keys))
	router.GET("/stats", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestAdminKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		header string
		want   int
	}{
		{"valid key", []string{"admin-1", "admin-2"}, "admin-2", http.StatusOK},
		{"missing key", []string{"admin-1"}, "", http.StatusUnauthorized},
		{"wrong key", []string{"admin-1"}, "nope", http.StatusForbidden},
		{"no keys configured", nil, "anything", http.StatusForbidden},
		{"empty configured key never matches", []string{""}, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			newAdminRouter(tt.keys).ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAdminKeyAuth_IgnoresQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stats?api_key=admin-1", nil)
	w := httptest.NewRecorder()
	newAdminRouter([]string{"admin-1"}).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a key in the query string, got %d", w.Code)
	}
}
