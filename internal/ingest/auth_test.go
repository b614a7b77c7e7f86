package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthenticator_OpenWhenNoSecrets(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator("", "", time.Minute)
	res, err := a.Verify(AuthInput{Secret: "anything"})
	require.NoError(t, err)
	require.Equal(t, Unauthenticated, res.Verification)
	require.Nil(t, res.SignatureValid)
	require.Nil(t, res.Verification.SecretLabel())
}

func TestAuthenticator_PrimaryAndSecondaryMatch(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator("alpha", "beta", time.Minute)

	res, err := a.Verify(AuthInput{Secret: "alpha"})
	require.NoError(t, err)
	require.Equal(t, VerifiedPrimary, res.Verification)
	require.Equal(t, "primary", *res.Verification.SecretLabel())

	res, err = a.Verify(AuthInput{Secret: "beta"})
	require.NoError(t, err)
	require.Equal(t, VerifiedSecondary, res.Verification)
	require.Equal(t, "secondary", *res.Verification.SecretLabel())
}

func TestAuthenticator_WrongSecretRejected(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator("alpha", "", time.Minute)
	_, err := a.Verify(AuthInput{Secret: "nope"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticator_SecretIDPinsSecret(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator("alpha", "beta", time.Minute)

	// The secondary secret presented under the primary id must not pass.
	_, err := a.Verify(AuthInput{Secret: "beta", SecretID: "primary"})
	require.ErrorIs(t, err, ErrUnauthorized)

	res, err := a.Verify(AuthInput{Secret: "beta", SecretID: "2"})
	require.NoError(t, err)
	require.Equal(t, VerifiedSecondary, res.Verification)
}

func TestAuthenticator_UnknownSecretIDRejected(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator("alpha", "beta", time.Minute)
	_, err := a.Verify(AuthInput{Secret: "alpha", SecretID: "tertiary"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func signBody(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("\n"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestAuthenticator_ValidSignature(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAuthenticator("alpha", "", 5*time.Minute)
	a.now = func() time.Time { return now }

	body := []byte(`{"title":"x"}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	res, err := a.Verify(AuthInput{
		Secret:             "alpha",
		Signature:          "sha256=" + signBody("alpha", ts, body),
		SignatureTimestamp: ts,
		Body:               body,
	})
	require.NoError(t, err)
	require.NotNil(t, res.SignatureValid)
	require.True(t, *res.SignatureValid)
}

func TestAuthenticator_SignatureTimestampOutsideWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAuthenticator("alpha", "", 5*time.Minute)
	a.now = func() time.Time { return now }

	body := []byte(`{}`)
	ts := strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)

	res, err := a.Verify(AuthInput{
		Secret:             "alpha",
		Signature:          "sha256=" + signBody("alpha", ts, body),
		SignatureTimestamp: ts,
		Body:               body,
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NotNil(t, res.SignatureValid)
	require.False(t, *res.SignatureValid)
}

func TestAuthenticator_SignatureMismatch(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAuthenticator("alpha", "", 5*time.Minute)
	a.now = func() time.Time { return now }

	ts := strconv.FormatInt(now.Unix(), 10)
	res, err := a.Verify(AuthInput{
		Secret:             "alpha",
		Signature:          "sha256=" + signBody("alpha", ts, []byte("other body")),
		SignatureTimestamp: ts,
		Body:               []byte(`{}`),
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NotNil(t, res.SignatureValid)
	require.False(t, *res.SignatureValid)
}

func TestAuthenticator_MalformedSignatureRejected(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := NewAuthenticator("alpha", "", 5*time.Minute)
	ts := strconv.FormatInt(now.Unix(), 10)

	_, err := a.Verify(AuthInput{
		Secret:             "alpha",
		Signature:          "not-hex!",
		SignatureTimestamp: ts,
		Body:               []byte(`{}`),
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}
