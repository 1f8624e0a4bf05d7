package actor

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestSignParseRoundTrip(t *testing.T) {
	token, err := Sign(Actor{Subject: "u-1", Roles: []string{"admin"}}, secret, time.Minute)
	require.NoError(t, err)

	a, err := ParseBearer("Bearer "+token, secret)
	require.NoError(t, err)
	assert.Equal(t, &Actor{Subject: "u-1", Roles: []string{"admin"}}, a)
	assert.True(t, a.HasRole("admin"))
	assert.False(t, a.HasRole("owner"))
}

func TestParseBearer_Empty(t *testing.T) {
	a, err := ParseBearer("", secret)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestParseBearer_Rejects(t *testing.T) {
	valid, err := Sign(Actor{Subject: "u-1"}, secret, time.Minute)
	require.NoError(t, err)
	expired, err := Sign(Actor{Subject: "u-1"}, secret, -time.Minute)
	require.NoError(t, err)
	noSubject, err := Sign(Actor{}, secret, time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"scheme":       "Basic " + valid,
		"blank":        "Bearer ",
		"wrong secret": "Bearer " + mustSign(t, "other"),
		"expired":      "Bearer " + expired,
		"no subject":   "Bearer " + noSubject,
		"alg none":     "Bearer " + none,
		"garbage":      "Bearer not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBearer(header, secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func mustSign(t *testing.T, key string) string {
	t.Helper()
	token, err := Sign(Actor{Subject: "u-1"}, key, time.Minute)
	require.NoError(t, err)
	return token
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	_, ok = FromContext(NewContext(context.Background(), nil))
	assert.False(t, ok)

	a := &Actor{Subject: "u-1"}
	got, ok := FromContext(NewContext(context.Background(), a))
	require.True(t, ok)
	assert.Same(t, a, got)
}
