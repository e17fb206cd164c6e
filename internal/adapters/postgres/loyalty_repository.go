package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type loyaltyRepository struct {
	db *gorm.DB
}

// NewLoyaltyRepository returns the permanent membership set backed by the
// loyalty_members table.
func NewLoyaltyRepository(db *gorm.DB) *loyaltyRepository {
	return &loyaltyRepository{db: db}
}

func (r *loyaltyRepository) IsMember(ctx context.Context, customerKey string) (bool, error) {
	var rec loyaltyMemberModel
	err := r.db.WithContext(ctx).Where("customer_key = ?", customerKey).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Grant is an upsert; granting an existing member is a no-op.
func (r *loyaltyRepository) Grant(ctx context.Context, customerKey string, grantedAt time.Time) error {
	rec := loyaltyMemberModel{
		CustomerKey: customerKey,
		GrantedAt:   grantedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "customer_key"}}, DoNothing: true}).
		Create(&rec).Error
}
