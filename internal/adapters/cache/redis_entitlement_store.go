package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
)

// RedisEntitlementStore keeps entitlements as JSON values with an absolute
// TTL. Redis key expiry is the out-of-band reaper: a record the reaper has
// not purged yet is still served as live.
type RedisEntitlementStore struct {
	client *redis.Client
}

// NewRedisEntitlementStore creates the TTL-backed entitlement store.
func NewRedisEntitlementStore(client *redis.Client) *RedisEntitlementStore {
	return &RedisEntitlementStore{client: client}
}

func entitlementKey(customerKey, bundleID string) string {
	return "store:entitlement:" + customerKey + ":" + bundleID
}

func (s *RedisEntitlementStore) Find(ctx context.Context, customerKey, bundleID string) (*domain.Entitlement, error) {
	raw, err := s.client.Get(ctx, entitlementKey(customerKey, bundleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out domain.Entitlement
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Record overwrites any previous record for the pair; concurrent confirms
// for the same customer+bundle are tolerated with last write winning.
func (s *RedisEntitlementStore) Record(ctx context.Context, entitlement domain.Entitlement, ttl time.Duration) error {
	raw, err := json.Marshal(entitlement)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, entitlementKey(entitlement.CustomerKey, entitlement.BundleID), raw, ttl).Err()
}
