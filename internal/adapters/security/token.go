package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

// CapabilitySigner implements HS256 signing/parsing for bundle access tokens.
// The secret is held at adapter level so application layer stays
// crypto-library agnostic.
type CapabilitySigner struct {
	secret []byte
	leeway time.Duration
}

// NewCapabilitySigner builds a signer from the configured shared secret.
func NewCapabilitySigner(secret string) (*CapabilitySigner, error) {
	if secret == "" {
		return nil, errors.New("capability token secret is required")
	}
	return &CapabilitySigner{
		secret: []byte(secret),
		leeway: 30 * time.Second,
	}, nil
}

// NewEphemeralCapabilitySigner creates a random-secret signer for local/dev
// runtimes. Tokens do not survive a restart, which is acceptable there.
func NewEphemeralCapabilitySigner() (*CapabilitySigner, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return NewCapabilitySigner(base64.RawStdEncoding.EncodeToString(raw))
}

type capabilityJWTClaims struct {
	BundleID string `json:"bundle_id"`
	jwt.RegisteredClaims
}

func (s *CapabilitySigner) Issue(claims ports.CapabilityClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, capabilityJWTClaims{
		BundleID: claims.BundleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(s.secret)
}

func (s *CapabilitySigner) Verify(raw, expectedBundleID string) (ports.CapabilityClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &capabilityJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(s.leeway), jwt.WithExpirationRequired())
	if err != nil {
		return ports.CapabilityClaims{}, err
	}
	claims, ok := parsed.Claims.(*capabilityJWTClaims)
	if !ok || !parsed.Valid {
		return ports.CapabilityClaims{}, errors.New("invalid token claims")
	}
	if claims.BundleID == "" {
		return ports.CapabilityClaims{}, errors.New("token missing bundle binding")
	}
	if expectedBundleID != "" && claims.BundleID != expectedBundleID {
		return ports.CapabilityClaims{}, errors.New("token bound to a different bundle")
	}

	out := ports.CapabilityClaims{
		BundleID: claims.BundleID,
		Subject:  claims.Subject,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
