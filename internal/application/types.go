package application

import (
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

type Config struct {
	TokenTTL           time.Duration
	EntitlementTTL     time.Duration
	Currency           string
	LoyaltyGrantSecret string
}

type QuoteRequest struct {
	BundleID   string `json:"bundle_id"`
	Email      string `json:"email"`
	CouponCode string `json:"coupon_code"`
}

type QuoteResponse struct {
	BundleID       string `json:"bundle_id"`
	BundleName     string `json:"bundle_name"`
	BasePrice      int64  `json:"base_price"`
	LoyaltyApplied bool   `json:"loyalty_applied"`
	CouponCode     string `json:"coupon_code,omitempty"`
	CouponPercent  int    `json:"coupon_percent,omitempty"`
	FinalPrice     int64  `json:"final_price"`
	Currency       string `json:"currency"`
	FreeRedemption bool   `json:"free_redemption"`
}

type CreateOrderRequest struct {
	BundleID   string `json:"bundle_id"`
	Email      string `json:"email"`
	CouponCode string `json:"coupon_code"`
}

type CreateOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type ConfirmPaymentRequest struct {
	BundleID  string `json:"bundle_id"`
	Email     string `json:"email"`
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type RedeemFreeRequest struct {
	BundleID   string `json:"bundle_id"`
	Email      string `json:"email"`
	CouponCode string `json:"coupon_code"`
}

// AccessResponse carries a freshly issued or reused capability token.
type AccessResponse struct {
	BundleID  string `json:"bundle_id"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type CheckAccessRequest struct {
	BundleID string `json:"bundle_id"`
	Email    string `json:"email"`
}

type CheckAccessResponse struct {
	Active bool   `json:"active"`
	Token  string `json:"token,omitempty"`
}

type GrantLoyaltyRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

type BundleSummary struct {
	BundleID  string `json:"bundle_id"`
	Name      string `json:"name"`
	BasePrice int64  `json:"base_price"`
	Currency  string `json:"currency"`
}

type ListFilesResponse struct {
	BundleID string           `json:"bundle_id"`
	Files    []ports.FileInfo `json:"files"`
}
