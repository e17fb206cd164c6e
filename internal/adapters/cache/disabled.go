package cache

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
)

// DisabledEntitlementStore is wired when Redis is unreachable at startup.
// Selling must not stop because the store is down, so lookups report no
// entitlement and writes are dropped.
type DisabledEntitlementStore struct{}

func NewDisabledEntitlementStore() *DisabledEntitlementStore {
	return &DisabledEntitlementStore{}
}

func (*DisabledEntitlementStore) Find(context.Context, string, string) (*domain.Entitlement, error) {
	return nil, nil
}

func (*DisabledEntitlementStore) Record(context.Context, domain.Entitlement, time.Duration) error {
	return nil
}
