package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestService_GenerateAndValidateToken(t *testing.T) {
	svc, _ := newTestService(t, testAuthConfig())
	user, err := svc.CreateUser("librarian", "librarian@example.com", testPassword, entities.UserRoleEditor)
	require.NoError(t, err)

	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	found, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.NotEqual(t, token, found.TokenHash, "only the digest is stored")

	// A new token replaces the old one
	second, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ValidateToken(second)
	assert.NoError(t, err)
}

func TestService_ValidateToken_Rejects(t *testing.T) {
	svc, _ := newTestService(t, testAuthConfig())

	_, err := svc.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.TokenExpiry = time.Hour
	svc, db := newTestService(t, cfg)
	user, err := svc.CreateUser("librarian", "librarian@example.com", testPassword, entities.UserRoleEditor)
	require.NoError(t, err)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&entities.User{}).Where("id = ?", user.ID).
		Update("token_created_at", time.Now().Add(-2*time.Hour)).Error)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestService_GenerateToken_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, testAuthConfig())

	_, err := svc.GenerateToken(42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_RevokeToken(t *testing.T) {
	svc, _ := newTestService(t, testAuthConfig())
	user, err := svc.CreateUser("librarian", "librarian@example.com", testPassword, entities.UserRoleEditor)
	require.NoError(t, err)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(user.ID))

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenController(t *testing.T) {
	svc, _ := newTestService(t, testAuthConfig())
	user, err := svc.CreateUser("librarian", "librarian@example.com", testPassword, entities.UserRoleEditor)
	require.NoError(t, err)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextKeyUser, user)
		c.Next()
	})
	NewTokenController(svc, logging.Discard()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/token", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/auth/token", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token revoked")
}

func TestNewSessionSecret(t *testing.T) {
	a, err := NewSessionSecret()
	require.NoError(t, err)
	b, err := NewSessionSecret()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
