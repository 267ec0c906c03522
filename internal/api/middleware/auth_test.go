package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authRequest(authorization string) (*httptest.ResponseRecorder, *uuid.UUID) {
	var gotUserID *uuid.UUID

	r := gin.New()
	r.GET("/protected", NewAuthMiddleware(testSecret).AuthMiddleware(), func(c *gin.Context) {
		id := c.MustGet("userID").(uuid.UUID)
		gotUserID = &id
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, gotUserID
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, testSecret, userID.String())

	w, gotUserID := authRequest("Bearer " + token)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotUserID)
	assert.Equal(t, userID, *gotUserID)
}

func TestAuthMiddlewareBareToken(t *testing.T) {
	// The Bearer prefix is optional
	userID := uuid.New()
	token := signToken(t, testSecret, userID.String())

	w, _ := authRequest(token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	w, _ := authRequest("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", uuid.New().String())

	w, _ := authRequest("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	w, _ := authRequest("Bearer " + signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareNonUUIDSubject(t *testing.T) {
	token := signToken(t, testSecret, "not-a-uuid")

	w, _ := authRequest("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
