package main

import (
	"net/http"
	"testing"
	"time"

	"goalquest-backend/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTGenerationAndValidation(t *testing.T) {
	utils.SetJWTSecret("test-secret")
	defer utils.SetJWTSecret("")

	token, err := utils.GenerateJWT(7, "runner@goalquest.test", true)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := utils.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "runner@goalquest.test", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestJWTRejectsForeignSecret(t *testing.T) {
	claims := &utils.Claims{
		UserID: 1,
		Email:  "intruder@goalquest.test",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = utils.ValidateJWT(token)
	assert.Error(t, err)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	utils.SetJWTSecret("")
	claims := &utils.Claims{
		UserID: 1,
		Email:  "late@goalquest.test",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("goalquest-secret-key-change-in-production"))
	require.NoError(t, err)

	_, err = utils.ValidateJWT(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	app, db := setupTestApp(t)
	_, auth := createTestUser(t, db, "ivan", false)

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"без заголовка", "", http.StatusUnauthorized, "Authorization header required"},
		{"без Bearer", "Token abc", http.StatusUnauthorized, "Invalid authorization header format"},
		{"битый токен", "Bearer abc.def.ghi", http.StatusUnauthorized, "Invalid token"},
		{"валидный токен", auth, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, http.MethodGet, "/api/levels/me", nil, tt.header)
			assert.Equal(t, tt.status, status)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
				assert.Equal(t, true, body["error"])
			}
		})
	}
}
