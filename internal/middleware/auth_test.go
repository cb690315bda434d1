package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func signToken(t *testing.T, userID int, secret string, expiry time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func TestAuth_Handler(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		assert.True(t, ok)
		assert.Equal(t, 7, userID)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token reaches the handler with user id set", func(t *testing.T) {
		auth := NewAuth(nil)
		token := signToken(t, 7, "test-secret", time.Hour)

		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header is 401", func(t *testing.T) {
		auth := NewAuth(nil)
		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	})

	t.Run("malformed header is 401", func(t *testing.T) {
		auth := NewAuth(nil)
		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		r.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token is 401", func(t *testing.T) {
		auth := NewAuth(nil)
		token := signToken(t, 7, "test-secret", -time.Hour)

		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token signed with the wrong secret is 401", func(t *testing.T) {
		auth := NewAuth(nil)
		token := signToken(t, 7, "other-secret", time.Hour)

		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("blacklisted token is 401", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		auth := NewAuth(redisClient)
		token := signToken(t, 7, "test-secret", time.Hour)

		redisMock.ExpectExists("blacklist:" + token).SetVal(1)

		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("token not on the blacklist passes", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		auth := NewAuth(redisClient)
		token := signToken(t, 7, "test-secret", time.Hour)

		redisMock.ExpectExists("blacklist:" + token).SetVal(0)

		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("redis outage fails open", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		auth := NewAuth(redisClient)
		token := signToken(t, 7, "test-secret", time.Hour)

		redisMock.ExpectExists("blacklist:" + token).SetErr(assert.AnError)

		r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		auth.Handler(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestUserID(t *testing.T) {
	t.Run("absent without middleware", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		_, ok := UserID(r)
		assert.False(t, ok)
	})

	t.Run("present via WithUserID", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r = r.WithContext(WithUserID(r.Context(), 7))
		userID, ok := UserID(r)
		assert.True(t, ok)
		assert.Equal(t, 7, userID)
	})
}
