package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddieafk/bifrostql/errs"
)

func signedToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "exp": jwt.NewNumericDate(expiresAt).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuthChecker_ValidToken_StoresClaims(t *testing.T) {
	checker := NewJWTAuthChecker("a-sufficiently-long-secret")
	token := signedToken(t, "a-sufficiently-long-secret", time.Now().Add(time.Hour))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	ctx, err := checker.Check(r)
	require.NoError(t, err)

	claims, ok := Claims(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", claims["sub"])
}

func TestJWTAuthChecker_MissingHeader_ReturnsAuthRequired(t *testing.T) {
	checker := NewJWTAuthChecker("a-sufficiently-long-secret")
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	_, err := checker.Check(r)
	require.Error(t, err)
	coded, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.CodeAuthRequired, coded.Code)
}

func TestJWTAuthChecker_ExpiredToken_ReturnsAuthRequired(t *testing.T) {
	checker := NewJWTAuthChecker("a-sufficiently-long-secret")
	token := signedToken(t, "a-sufficiently-long-secret", time.Now().Add(-time.Hour))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := checker.Check(r)
	require.Error(t, err)
	coded, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.CodeAuthRequired, coded.Code)
}

func TestJWTAuthChecker_WrongSecret_ReturnsAuthRequired(t *testing.T) {
	checker := NewJWTAuthChecker("a-sufficiently-long-secret")
	token := signedToken(t, "a-totally-different-secret", time.Now().Add(time.Hour))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := checker.Check(r)
	assert.Error(t, err)
	coded, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.CodeAuthRequired, coded.Code)
}
