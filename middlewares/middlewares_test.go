package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/pos-sync/utils"
)

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		userID, _ := c.Get("userID")
		c.JSON(http.StatusOK, gin.H{"user": userID})
	})
	return r
}

func get(r *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newTestRouter(AuthMiddleware())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", map[string]string{"Authorization": "Bearer nope"}).Code)

	token, err := utils.GenerateToken("owner-1", "owner")
	require.NoError(t, err)
	w := get(r, "/ping", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "owner-1")
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	r := newTestRouter(WebSocketAuthMiddleware())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", nil).Code)

	token, err := utils.GenerateToken("cashier-1", "cashier")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(r, "/ping?token="+token, nil).Code)
}

func TestRateLimiterPerIP(t *testing.T) {
	r := newTestRouter(NewRateLimiter(0.001, 2).RateLimit())

	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", nil).Code)

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, get(r, "/ping", map[string]string{"X-Forwarded-For": "10.0.0.9"}).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(CORSMiddlewares("http://localhost:5173"))
	req, _ := http.NewRequest(http.MethodOptions, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOriginList(t *testing.T) {
	r := newTestRouter(CORSMiddlewares("http://127.0.0.1:5500, http://localhost:5173"))

	w := get(r, "/ping", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/ping", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req, _ := http.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionOwner(t *testing.T) {
	current := ""
	withUser := func(c *gin.Context) {
		c.Set("userID", c.GetHeader("X-User"))
		c.Next()
	}
	r := newTestRouter(withUser, SessionOwner(func() string { return current }))

	assert.Equal(t, http.StatusPreconditionFailed, get(r, "/ping", map[string]string{"X-User": "owner-1"}).Code)

	current = "owner-1"
	assert.Equal(t, http.StatusOK, get(r, "/ping", map[string]string{"X-User": "owner-1"}).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/ping", map[string]string{"X-User": "owner-2"}).Code)
}

func TestSecurityHeaders(t *testing.T) {
	w := get(newTestRouter(SecurityHeaders(), LoggerMiddleware()), "/ping", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
