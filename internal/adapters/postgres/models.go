package postgres

import "time"

type loyaltyMemberModel struct {
	CustomerKey string    `gorm:"column:customer_key;primaryKey"`
	GrantedAt   time.Time `gorm:"column:granted_at"`
}

func (loyaltyMemberModel) TableName() string { return "loyalty_members" }
