package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Verification is the tagged outcome of webhook authentication. Keeping the
// matched secret explicit lets the signature step use the same secret that
// verified instead of re-deriving it from nested conditionals.
type Verification int

const (
	// Unauthenticated means no secrets are configured and the endpoint ran
	// open (backward-compatible mode).
	Unauthenticated Verification = iota
	// VerifiedPrimary means the primary secret matched.
	VerifiedPrimary
	// VerifiedSecondary means the secondary secret matched.
	VerifiedSecondary
)

// SecretLabel returns the audit-log label for the verification, or nil when
// the endpoint ran unauthenticated.
func (v Verification) SecretLabel() *string {
	var label string
	switch v {
	case VerifiedPrimary:
		label = "primary"
	case VerifiedSecondary:
		label = "secondary"
	default:
		return nil
	}
	return &label
}

// ErrUnauthorized is the sentinel for all webhook authentication failures.
var ErrUnauthorized = errors.New("unauthorized webhook call")

// AuthInput carries the authentication material from one request.
type AuthInput struct {
	Secret             string // x-webhook-secret
	SecretID           string // x-secret-id: primary|1|secondary|2
	Signature          string // x-signature: hex HMAC-SHA256
	SignatureTimestamp string // x-signature-timestamp: unix seconds
	Body               []byte
}

// AuthResult reports which secret verified and, when a signature header was
// supplied, whether it checked out.
type AuthResult struct {
	Verification Verification
	// SignatureValid is nil when the optional signature layer was not used.
	SignatureValid *bool
}

// Authenticator verifies the dual-active webhook secrets and the optional
// HMAC signature layer.
type Authenticator struct {
	primary   string
	secondary string
	maxSkew   time.Duration
	now       func() time.Time
}

// NewAuthenticator builds an Authenticator. Empty secrets disable auth.
func NewAuthenticator(primary, secondary string, maxSkew time.Duration) *Authenticator {
	if maxSkew <= 0 {
		maxSkew = 300 * time.Second
	}
	return &Authenticator{
		primary:   primary,
		secondary: secondary,
		maxSkew:   maxSkew,
		now:       time.Now,
	}
}

// Verify authenticates one request. A non-nil error means the request must be
// rejected with 401; the result is still populated for audit logging.
func (a *Authenticator) Verify(in AuthInput) (AuthResult, error) {
	res := AuthResult{Verification: Unauthenticated}

	if a.primary == "" && a.secondary == "" {
		// No secrets configured: open endpoint, signature layer skipped.
		return res, nil
	}

	switch strings.ToLower(in.SecretID) {
	case "":
		if a.primary != "" && in.Secret == a.primary {
			res.Verification = VerifiedPrimary
		} else if a.secondary != "" && in.Secret == a.secondary {
			res.Verification = VerifiedSecondary
		}
	case "primary", "1":
		if a.primary != "" && in.Secret == a.primary {
			res.Verification = VerifiedPrimary
		}
	case "secondary", "2":
		if a.secondary != "" && in.Secret == a.secondary {
			res.Verification = VerifiedSecondary
		}
	default:
		return res, fmt.Errorf("%w: unknown secret id", ErrUnauthorized)
	}

	if res.Verification == Unauthenticated {
		return res, ErrUnauthorized
	}

	if in.Signature == "" {
		// The signature layer is optional; a verified secret alone passes.
		return res, nil
	}

	valid, err := a.verifySignature(res.Verification, in)
	res.SignatureValid = &valid
	if err != nil {
		return res, err
	}
	return res, nil
}

func (a *Authenticator) verifySignature(v Verification, in AuthInput) (bool, error) {
	secret := a.primary
	if v == VerifiedSecondary {
		secret = a.secondary
	}

	ts, err := strconv.ParseInt(in.SignatureTimestamp, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: invalid signature timestamp", ErrUnauthorized)
	}
	skew := a.now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > a.maxSkew {
		return false, fmt.Errorf("%w: signature timestamp outside allowed window", ErrUnauthorized)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(in.SignatureTimestamp))
	mac.Write([]byte("\n"))
	mac.Write(in.Body)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(strings.TrimPrefix(in.Signature, "sha256="))
	if err != nil {
		return false, fmt.Errorf("%w: malformed signature", ErrUnauthorized)
	}
	if !hmac.Equal(expected, provided) {
		return false, fmt.Errorf("%w: signature mismatch", ErrUnauthorized)
	}
	return true, nil
}
