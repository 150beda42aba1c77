package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT("secret", "https://id.example", "demandboard")

	tok, err := j.Sign(Identity{Subject: "user-1", Email: "a@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	id, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.Subject)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Equal(t, "Ada", id.Name)
}

func TestJWT_Rejects(t *testing.T) {
	j := NewJWT("secret", "", "")

	expired, err := j.Sign(Identity{Subject: "user-1"}, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewJWT("other", "", "").Sign(Identity{Subject: "user-1"}, time.Hour)
	require.NoError(t, err)

	noSubject, err := j.Sign(Identity{}, time.Hour)
	require.NoError(t, err)

	wrongAudience, err := NewJWT("secret", "", "someone-else").Sign(Identity{Subject: "user-1"}, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	strict := NewJWT("secret", "", "demandboard")

	tests := []struct {
		name  string
		gate  *JWT
		token string
	}{
		{"garbage", j, "not-a-token"},
		{"expired", j, expired},
		{"wrong key", j, otherKey},
		{"missing subject", j, noSubject},
		{"alg none", j, none},
		{"wrong audience", strict, wrongAudience},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.gate.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
