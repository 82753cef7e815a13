package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/account-policy/pkg/auth"
	"github.com/jwalitptl/account-policy/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJWT struct {
	claims *auth.Claims
}

func (f fakeJWT) ValidateToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, auth.ErrInvalidToken
	}
	return f.claims, nil
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		fromCtx, _ := c.Request.Context().Value(logger.RequestIDKey).(string)
		assert.Equal(t, c.GetString(ContextRequestID), fromCtx)
		c.Status(http.StatusNoContent)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderXRequestID))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, strings.Repeat("x", 200))
	w = serve(r, req)
	assert.NotEqual(t, strings.Repeat("x", 200), w.Header().Get(HeaderXRequestID))
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()
	m := NewAuthMiddleware(fakeJWT{claims: &auth.Claims{UserID: userID, Roles: []string{"SecurityAdmin"}}})

	r := gin.New()
	r.Use(m.Authenticate())
	r.GET("/", func(c *gin.Context) {
		actor, ok := ActorID(c)
		require.True(t, ok)
		assert.Equal(t, userID, actor)
		assert.Equal(t, []string{"SecurityAdmin"}, c.GetStringSlice(ContextRoles))
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer good", status: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusNoContent},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.status, serve(r, req).Code)
		})
	}
}

func TestActorID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := ActorID(c)
	assert.False(t, ok)

	c.Set(ContextUserID, uuid.Nil)
	_, ok = ActorID(c)
	assert.False(t, ok)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return req
	}

	assert.Equal(t, http.StatusNoContent, serve(r, newReq("198.51.100.1")).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, newReq("198.51.100.1")).Code)

	w := serve(r, newReq("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Buckets are per client
	assert.Equal(t, http.StatusNoContent, serve(r, newReq("198.51.100.2")).Code)
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(SizeLimitConfig{MaxBodySize: 8}))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("tiny")))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("much too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

type bindTarget struct {
	UserID string `json:"user_id" binding:"required"`
	Action string `json:"action" binding:"required,action_name"`
}

func TestValidationErrors(t *testing.T) {
	RegisterValidators()

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{name: "valid", body: `{"user_id":"u","action":"Login"}`},
		{name: "missing both", body: `{}`, fields: []string{"user_id", "action"}},
		{name: "bad action", body: `{"user_id":"u","action":"1drop"}`, fields: []string{"action"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var target bindTarget
			errs := ValidationErrors(c.ShouldBindJSON(&target))

			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
				assert.NotEmpty(t, e.Message)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}

	assert.Nil(t, ValidationErrors(errors.New("not a validation error")))
}
