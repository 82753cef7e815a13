package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		path     string
		checks   map[string]Pinger
		status   int
		expected string
	}{
		{name: "live", path: "/health/live", checks: map[string]Pinger{"database": down}, status: http.StatusOK, expected: "UP"},
		{name: "ready", path: "/health/ready", checks: map[string]Pinger{"database": up, "redis": up}, status: http.StatusOK, expected: "UP"},
		{name: "not ready", path: "/health/ready", checks: map[string]Pinger{"database": up, "redis": down}, status: http.StatusServiceUnavailable, expected: "DOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHandler(tt.checks).RegisterRoutes(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expected, body["status"])
		})
	}
}
