package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/leadloom/leadloom/internal/config"
	"github.com/leadloom/leadloom/pkg/cache"
)

func newTestAuth(t *testing.T) (*AuthService, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	secret, url, err := NewAuthService(&config.AuthConfig{Issuer: "Leadloom"}, nil, logger).GenerateSecret("owner@example.com")
	require.NoError(t, err)
	assert.Contains(t, url, "otpauth://totp/")
	assert.Contains(t, url, "issuer=Leadloom")

	auth := NewAuthService(&config.AuthConfig{
		TOTPSecret: secret,
		SessionTTL: "1h",
		Issuer:     "Leadloom",
	}, cache.NewMemoryCache(time.Hour), logger)
	return auth, secret
}

func TestAuthLoginLogout(t *testing.T) {
	ctx := context.Background()
	auth, secret := newTestAuth(t)
	assert.True(t, auth.Enabled())
	assert.Equal(t, time.Hour, auth.SessionTTL())

	_, err := auth.Login(ctx, "000000x")
	assert.ErrorIs(t, err, ErrInvalidCode)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	token, err := auth.Login(ctx, " "+code+" ")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, auth.isValidSession(ctx, token))

	require.NoError(t, auth.Logout(ctx, token))
	assert.False(t, auth.isValidSession(ctx, token))
	assert.False(t, auth.isValidSession(ctx, ""))
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth, secret := newTestAuth(t)

	router := gin.New()
	router.Use(auth.AuthMiddleware("/health"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve := func(req *http.Request) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve(httptest.NewRequest(http.MethodGet, "/health", nil)))
	assert.Equal(t, http.StatusUnauthorized, serve(httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)))

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	token, err := auth.Login(context.Background(), code)
	require.NoError(t, err)

	withCookie := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	withCookie.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	assert.Equal(t, http.StatusOK, serve(withCookie))

	withBearer := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	withBearer.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, serve(withBearer))

	stale := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	stale.Header.Set("Authorization", "Bearer not-a-session")
	assert.Equal(t, http.StatusUnauthorized, serve(stale))
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuthService(&config.AuthConfig{}, cache.NewMemoryCache(time.Hour), zaptest.NewLogger(t))
	assert.False(t, auth.Enabled())

	router := gin.New()
	router.Use(auth.AuthMiddleware())
	router.GET("/api/v1/items", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
