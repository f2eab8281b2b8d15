package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ksred/order-bot/internal/auth"
	"github.com/ksred/order-bot/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func serve(router *gin.Engine, method, path string, header map[string]string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w.Code
}

func TestWebhookSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/telegram/webhook", middleware.WebhookSecret("hook-secret"), ok)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/telegram/webhook", nil))
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/telegram/webhook",
		map[string]string{middleware.WebhookSecretHeader: "wrong"}))
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/telegram/webhook",
		map[string]string{middleware.WebhookSecretHeader: "hook-secret"}))

	open := gin.New()
	open.POST("/telegram/webhook", middleware.WebhookSecret(""), ok)
	assert.Equal(t, http.StatusOK, serve(open, http.MethodPost, "/telegram/webhook", nil))
}

func TestOperatorAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := auth.NewService("jwt-secret", "operator", "s3cret")
	token, err := service.GenerateToken(auth.Credentials{APIKey: "operator", APISecret: "s3cret"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/api/v1/internal/stats", middleware.OperatorAuth(service), func(c *gin.Context) {
		assert.Equal(t, "operator", c.GetString("clientID"))
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/internal/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/internal/stats",
		map[string]string{"Authorization": "Token abc"}))
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/internal/stats",
		map[string]string{"Authorization": "Bearer garbage"}))
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/internal/stats",
		map[string]string{"Authorization": "Bearer " + token.Token}))
}

func TestRateLimitAuthRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RateLimit())
	router.POST("/api/v1/auth/token", ok)
	router.GET("/healthz", ok)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/v1/auth/token", nil))
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "/api/v1/auth/token", nil))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz", nil))
	}
}
