package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/account-policy/internal/handler/health"
	"github.com/jwalitptl/account-policy/internal/handler/prometheus"
	"github.com/jwalitptl/account-policy/internal/middleware"
	"github.com/jwalitptl/account-policy/pkg/auth"
)

type staticVerifier struct{}

func (staticVerifier) ValidateToken(token string) (*auth.Claims, error) {
	if token != "valid" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{}, nil
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestRouter() *Router {
	healthH := health.NewHandler(map[string]health.Pinger{
		"database": health.PingFunc(func(context.Context) error { return nil }),
	})
	r := NewRouter(
		middleware.NewAuthMiddleware(staticVerifier{}),
		healthH,
		prometheus.New(prom.NewRegistry()),
		RouterConfig{Mode: gin.TestMode, RateLimitOff: true},
		pingHandler{},
	)
	r.Setup()
	return r
}

func TestRouter(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{name: "liveness is public", path: "/health/live", status: http.StatusOK},
		{name: "readiness is public", path: "/health/ready", status: http.StatusOK},
		{name: "metrics is public", path: "/metrics", status: http.StatusOK},
		{name: "api requires token", path: "/api/v1/ping", status: http.StatusUnauthorized},
		{name: "api rejects bad token", path: "/api/v1/ping", token: "nope", status: http.StatusUnauthorized},
		{name: "api with token", path: "/api/v1/ping", token: "valid", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.Engine().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
		})
	}
}
