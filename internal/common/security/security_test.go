package security

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager([]byte("test-secret"), time.Hour)

	token, err := tm.GenerateToken("65f000000000000000000001", "teacher")
	require.NoError(t, err)

	decoded, err := jwtauth.VerifyToken(tm.Auth(), token)
	require.NoError(t, err)

	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)

	id, err := GetUserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "65f000000000000000000001", id)

	assert.Equal(t, "teacher", claims[ClaimRole])
	assert.NotEmpty(t, claims["jti"])
}

func TestTokenManagerExpired(t *testing.T) {
	tm := NewTokenManager([]byte("test-secret"), time.Hour)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := tm.GenerateToken("65f000000000000000000001", "student")
	require.NoError(t, err)

	_, err = jwtauth.VerifyToken(tm.Auth(), token)
	assert.ErrorIs(t, err, jwtauth.ErrExpired)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)
	assert.True(t, CheckPasswordHash("123456", hash))
	assert.False(t, CheckPasswordHash("1234567", hash))
}

func TestTooSimilar(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attrs    []string
		want     bool
	}{
		{"equal to student id", "110120001", []string{"110120001"}, true},
		{"close to name", "nguyenvana", []string{"Nguyen Van A"}, true},
		{"email local part", "giaovien1", []string{"giaovien@gmail.com"}, true},
		{"unrelated", "123456", []string{"110120001", "Sinh Viên Test"}, false},
		{"empty attribute", "secret", []string{""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TooSimilar(tt.password, tt.attrs...))
		})
	}
}
