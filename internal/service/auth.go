package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/leadloom/leadloom/internal/config"
	"github.com/leadloom/leadloom/pkg/cache"
)

const (
	SessionCookie = "auth_token"
	sessionPrefix = "session:"
)

var ErrInvalidCode = errors.New("invalid verification code")

type AuthService struct {
	logger     *zap.Logger
	totpSecret string
	issuer     string
	sessionTTL time.Duration
	sessions   cache.Cache
	now        func() time.Time
}

// NewAuthService keeps sessions in their own cache so that the session TTL
// does not depend on the analytics cache TTL.
func NewAuthService(cfg *config.AuthConfig, sessions cache.Cache, logger *zap.Logger) *AuthService {
	return &AuthService{
		logger:     logger,
		totpSecret: cfg.TOTPSecret,
		issuer:     cfg.Issuer,
		sessionTTL: config.Duration(cfg.SessionTTL),
		sessions:   sessions,
		now:        time.Now,
	}
}

func (a *AuthService) Enabled() bool {
	return a.totpSecret != ""
}

func (a *AuthService) SessionTTL() time.Duration {
	return a.sessionTTL
}

// GenerateSecret creates a new TOTP secret and its otpauth:// URL.
func (a *AuthService) GenerateSecret(accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

func (a *AuthService) ValidateCode(code string) bool {
	valid := totp.Validate(strings.TrimSpace(code), a.totpSecret)
	if valid {
		a.logger.Info("TOTP code validation successful")
	} else {
		a.logger.Warn("TOTP code validation failed")
	}
	return valid
}

// Login exchanges a valid TOTP code for a session token.
func (a *AuthService) Login(ctx context.Context, code string) (string, error) {
	if !a.ValidateCode(code) {
		return "", ErrInvalidCode
	}
	token := uuid.NewString()
	if err := a.sessions.Set(ctx, sessionPrefix+token, []byte(a.now().UTC().Format(time.RFC3339))); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

func (a *AuthService) Logout(ctx context.Context, token string) error {
	return a.sessions.Delete(ctx, sessionPrefix+token)
}

func (a *AuthService) isValidSession(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, ok, err := a.sessions.Get(ctx, sessionPrefix+token)
	if err != nil {
		a.logger.Error("Failed to read session", zap.Error(err))
		return false
	}
	return ok
}

// AuthMiddleware rejects requests without a live session. It lets everything
// through when no TOTP secret is configured.
func (a *AuthService) AuthMiddleware(publicPaths ...string) gin.HandlerFunc {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(c *gin.Context) {
		if !a.Enabled() || public[c.Request.URL.Path] {
			c.Next()
			return
		}

		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		if !a.isValidSession(c.Request.Context(), token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		c.Next()
	}
}
