package authgate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "testsecret123456789012345678901234"

func TestVerifyRoundTrip(t *testing.T) {
	raw, err := Sign(testSecret, "alice", time.Minute)
	require.NoError(t, err)

	v := NewHS256Verifier(testSecret)
	tok, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "alice", claims["sub"])
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := Sign("other-secret-aaaaaaaaaaaaaaaaaaaaa", "alice", time.Minute)
	require.NoError(t, err)

	v := NewHS256Verifier(testSecret)
	_, err = v.Verify(context.Background(), raw)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	raw, err := Sign(testSecret, "alice", -time.Minute)
	require.NoError(t, err)

	v := NewHS256Verifier(testSecret)
	_, err = v.Verify(context.Background(), raw)
	require.Error(t, err)
}

func TestVerifyWithoutSecretIsMisconfigured(t *testing.T) {
	v := NewHS256Verifier("")
	_, err := v.Verify(context.Background(), "whatever")
	require.ErrorIs(t, err, ErrNoSecret)
}
