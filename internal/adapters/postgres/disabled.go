package postgres

import (
	"context"
	"time"
)

// DisabledLoyaltyRepository is wired when Postgres is unreachable at startup.
// Pricing then runs without the standing discount and grants are dropped;
// the service keeps selling.
type DisabledLoyaltyRepository struct{}

func NewDisabledLoyaltyRepository() *DisabledLoyaltyRepository {
	return &DisabledLoyaltyRepository{}
}

func (*DisabledLoyaltyRepository) IsMember(context.Context, string) (bool, error) {
	return false, nil
}

func (*DisabledLoyaltyRepository) Grant(context.Context, string, time.Time) error {
	return nil
}
