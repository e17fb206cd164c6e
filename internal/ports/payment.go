package ports

import "context"

// PaymentOrder is the gateway-side order handle the checkout page needs.
type PaymentOrder struct {
	OrderID  string
	Amount   int64
	Currency string
}

// PaymentGateway wraps the external payment provider. Signature verification
// is a trusted primitive: the gate treats it as an opaque pass/fail.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (PaymentOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
	// KeyID is the public key identifier the checkout widget embeds.
	KeyID() string
}
