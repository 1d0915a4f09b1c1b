package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/plibrary/internal/entities"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// newAPIToken returns a fresh token and the SHA-256 digest stored in its
// place. Each user holds at most one token.
func newAPIToken() (token, digest string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("read random bytes: %w", err)
	}
	token = hex.EncodeToString(raw)
	return token, tokenDigest(token), nil
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewSessionSecret returns 32 random bytes for signing CSRF cookies.
func NewSessionSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// GenerateToken replaces the user's API token and returns the plaintext,
// which is never shown again.
func (s *Service) GenerateToken(userID uint) (string, error) {
	token, digest, err := newAPIToken()
	if err != nil {
		return "", err
	}

	updated, err := s.store.UpdateUser(userID, map[string]any{
		"token_hash":       digest,
		"token_created_at": time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	if updated == 0 {
		return "", ErrUserNotFound
	}
	return token, nil
}

// ValidateToken resolves a bearer token to its user.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.store.GetUserByTokenDigest(tokenDigest(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil && time.Since(*user.TokenCreatedAt) > s.config.TokenExpiry {
		return nil, ErrTokenExpired
	}
	return user, nil
}

func (s *Service) RevokeToken(userID uint) error {
	_, err := s.store.UpdateUser(userID, map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// TokenController lets a signed-in user issue or revoke their API token.
type TokenController struct {
	service *Service
	log     logrus.FieldLogger
}

func NewTokenController(service *Service, log logrus.FieldLogger) *TokenController {
	return &TokenController{service: service, log: log}
}

func (tc *TokenController) RegisterRoutes(router gin.IRoutes) {
	router.POST("/api/auth/token", tc.Issue)
	router.DELETE("/api/auth/token", tc.Revoke)
}

// Issue handles POST /api/auth/token
func (tc *TokenController) Issue(c *gin.Context) {
	userID := GetUserID(c)
	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		tc.log.WithError(err).WithField("user_id", userID).Error("Failed to issue API token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// Revoke handles DELETE /api/auth/token
func (tc *TokenController) Revoke(c *gin.Context) {
	userID := GetUserID(c)
	if err := tc.service.RevokeToken(userID); err != nil {
		tc.log.WithError(err).WithField("user_id", userID).Error("Failed to revoke API token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
