package domain

import "time"

// Entitlement records that a customer already holds paid (or freely granted)
// access to a bundle. It lives in a TTL-backed store; once the store expires
// the record the entitlement is gone, there is no second expiry check on
// created_at.
type Entitlement struct {
	CustomerKey string    `json:"customer_key"`
	BundleID    string    `json:"bundle_id"`
	Token       string    `json:"token"`
	CreatedAt   time.Time `json:"created_at"`
}

// PriceQuote is the deterministic result of the discount chain for one
// (customer, bundle, coupon) triple. Discounts compose multiplicatively in
// the fixed order loyalty -> coupon, flooring after each step.
type PriceQuote struct {
	BundleID       string
	BasePrice      int64
	LoyaltyApplied bool
	CouponCode     string
	CouponPercent  int
	FinalPrice     int64
	FreeRedemption bool
}
