package ports

import (
	"context"
	"time"
)

// LoyaltyRepository is the permanent membership set behind the standing
// discount. Both operations are idempotent: granting twice is a no-op.
type LoyaltyRepository interface {
	IsMember(ctx context.Context, customerKey string) (bool, error)
	Grant(ctx context.Context, customerKey string, grantedAt time.Time) error
}
