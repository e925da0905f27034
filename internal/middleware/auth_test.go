package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/invoice-intake-service/internal/service"
)

func newProtectedRouter(auth service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", AuthMiddleware(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString("role")})
	})
	return router
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	auth := service.NewAuthService("admin-key", "test-secret", time.Hour)
	token, err := auth.ExchangeAPIKey("admin-key")
	require.NoError(t, err)

	router := newProtectedRouter(auth)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	auth := service.NewAuthService("admin-key", "test-secret", time.Hour)
	router := newProtectedRouter(auth)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	auth := service.NewAuthService("admin-key", "test-secret", time.Hour)
	router := newProtectedRouter(auth)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsForgedToken(t *testing.T) {
	auth := service.NewAuthService("admin-key", "test-secret", time.Hour)
	other := service.NewAuthService("admin-key", "other-secret", time.Hour)
	token, err := other.ExchangeAPIKey("admin-key")
	require.NoError(t, err)

	router := newProtectedRouter(auth)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
