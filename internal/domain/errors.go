package domain

import "errors"

var (
	// ErrInvalidBundle is returned when the requested bundle is not in the catalog.
	// Adapters map it consistently to 404/NOT_FOUND.
	ErrInvalidBundle = errors.New("invalid bundle")
	// ErrInvalidToken covers expired, forged and bundle-mismatched tokens alike.
	// Callers never learn which check failed.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrPaymentRejected signals a failed payment-proof check.
	// The attempt is terminal; the caller must restart the payment flow.
	ErrPaymentRejected = errors.New("payment rejected")
	// ErrStorageUnavailable marks a file-storage failure, distinct from access denial.
	ErrStorageUnavailable = errors.New("file storage unavailable")
	// ErrOrderNotRequired is returned when an order is created for a fully
	// discounted quote that must go through the free-redemption path instead.
	ErrOrderNotRequired = errors.New("payment not required for this quote")
	// ErrCouponNotRedeemable is returned when a free redemption is attempted
	// with a coupon that does not grant 100% off.
	ErrCouponNotRedeemable = errors.New("coupon is not redeemable for free access")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("resource not found")
)
