package ports

import "time"

// CapabilityClaims is the decoded content of a capability token. The token
// binds the bearer to exactly one bundle; it does not identify a session.
type CapabilityClaims struct {
	BundleID  string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CapabilityIssuer signs and verifies bundle access tokens.
// Verification is pure and in-memory so the download path needs no store
// round-trip; the trade-off is that issued tokens cannot be revoked early.
type CapabilityIssuer interface {
	Issue(claims CapabilityClaims) (string, error)
	// Verify fails closed: decode errors, signature mismatch, expiry and
	// bundle mismatch are all returned as errors. Callers collapse every
	// failure into one access-denied outcome.
	Verify(token, expectedBundleID string) (CapabilityClaims, error)
}
