package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
)

// EntitlementStore keeps (customer, bundle) -> entitlement records with an
// absolute TTL set at write time. Store-level key expiry is the only expiry
// mechanism; Find must not re-check created_at.
type EntitlementStore interface {
	// Find returns (nil, nil) when no live entitlement exists.
	Find(ctx context.Context, customerKey, bundleID string) (*domain.Entitlement, error)
	Record(ctx context.Context, entitlement domain.Entitlement, ttl time.Duration) error
}
