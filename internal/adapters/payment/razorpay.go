package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway implements order creation and payment-signature checks
// against the Razorpay REST API. The signature primitive is
// HMAC-SHA256(order_id|payment_id) keyed with the API secret.
type RazorpayGateway struct {
	keyID      string
	secret     string
	baseURL    string
	httpClient *http.Client
}

type RazorpayConfig struct {
	KeyID      string
	Secret     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewRazorpayGateway(cfg RazorpayConfig) (*RazorpayGateway, error) {
	if cfg.KeyID == "" || cfg.Secret == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return &RazorpayGateway{
		keyID:      cfg.KeyID,
		secret:     cfg.Secret,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

func (g *RazorpayGateway) KeyID() string { return g.keyID }

type orderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt,omitempty"`
	PaymentCapture int    `json:"payment_capture"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (ports.PaymentOrder, error) {
	body, err := json.Marshal(orderRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return ports.PaymentOrder{}, fmt.Errorf("encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return ports.PaymentOrder{}, fmt.Errorf("build order request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.secret)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(req)
	if err != nil {
		return ports.PaymentOrder{}, fmt.Errorf("create order: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		return ports.PaymentOrder{}, fmt.Errorf("create order: gateway returned status %d", res.StatusCode)
	}

	var parsed orderResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return ports.PaymentOrder{}, fmt.Errorf("decode order response: %w", err)
	}
	if parsed.ID == "" {
		return ports.PaymentOrder{}, errors.New("create order: gateway returned empty order id")
	}

	return ports.PaymentOrder{
		OrderID:  parsed.ID,
		Amount:   parsed.Amount,
		Currency: parsed.Currency,
	}, nil
}

// VerifySignature checks the checkout callback proof. Comparison uses
// hmac.Equal so the check is constant time.
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	sig := strings.TrimSpace(signature)
	if orderID == "" || paymentID == "" || sig == "" {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.secret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(got, mac.Sum(nil))
}
