package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_1234567890"

func TestMaker_GenerateAndParse(t *testing.T) {
	maker := NewMaker(testSecret, 15*time.Minute)

	tests := []struct {
		name  string
		uid   string
		email string
	}{
		{name: "regular user", uid: "3f0c6a9e-0000-4000-8000-000000000001", email: "anna@example.com"},
		{name: "plus address", uid: "3f0c6a9e-0000-4000-8000-000000000002", email: "anna+portraits@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.uid, tt.email)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.uid, claims.UserUID)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, tt.uid, claims.Subject)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
		})
	}
}

func TestMaker_ParseToken_Invalid(t *testing.T) {
	maker := NewMaker(testSecret, 15*time.Minute)
	valid, err := maker.GenerateToken("uid-1", "a@example.com")
	require.NoError(t, err)

	expired, err := NewMaker(testSecret, -time.Hour).GenerateToken("uid-1", "a@example.com")
	require.NoError(t, err)

	foreign, err := NewMaker("other_secret", time.Hour).GenerateToken("uid-1", "a@example.com")
	require.NoError(t, err)

	noUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "malformed", token: "invalid.token.here"},
		{name: "expired", token: expired},
		{name: "wrong secret", token: foreign},
		{name: "tampered", token: valid + "x"},
		{name: "missing uid", token: noUID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestMaker_ParseToken_UsesClock(t *testing.T) {
	maker := NewMaker(testSecret, time.Minute)
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	maker.now = func() time.Time { return issued }

	token, err := maker.GenerateToken("uid-1", "a@example.com")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.NoError(t, err)

	maker.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = maker.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
