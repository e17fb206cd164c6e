package application

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

// Service is the access gate: it orchestrates pricing, payment confirmation,
// token issuance, entitlement reuse and file retrieval. All mutable state
// lives behind the store ports, so every operation is safe under concurrent
// invocation.
type Service struct {
	cfg          Config
	catalog      *domain.Catalog
	loyalty      ports.LoyaltyRepository
	entitlements ports.EntitlementStore
	issuer       ports.CapabilityIssuer
	gateway      ports.PaymentGateway
	storage      ports.FileStorage
	nowFn        func() time.Time
}

type Dependencies struct {
	Config       Config
	Catalog      *domain.Catalog
	Loyalty      ports.LoyaltyRepository
	Entitlements ports.EntitlementStore
	Issuer       ports.CapabilityIssuer
	Gateway      ports.PaymentGateway
	Storage      ports.FileStorage
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:          deps.Config,
		catalog:      deps.Catalog,
		loyalty:      deps.Loyalty,
		entitlements: deps.Entitlements,
		issuer:       deps.Issuer,
		gateway:      deps.Gateway,
		storage:      deps.Storage,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListBundles() []BundleSummary {
	bundles := s.catalog.Bundles()
	sort.Slice(bundles, func(i, j int) bool { return bundles[i].BundleID < bundles[j].BundleID })
	out := make([]BundleSummary, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, BundleSummary{
			BundleID:  b.BundleID,
			Name:      b.Name,
			BasePrice: b.BasePrice,
			Currency:  s.cfg.Currency,
		})
	}
	return out
}

func (s *Service) QuotePrice(ctx context.Context, req QuoteRequest) (QuoteResponse, error) {
	customerKey, err := domain.NormalizeCustomerKey(req.Email)
	if err != nil {
		return QuoteResponse{}, err
	}
	quote, err := s.Quote(ctx, req.BundleID, customerKey, req.CouponCode)
	if err != nil {
		return QuoteResponse{}, err
	}
	bundle, _ := s.catalog.Bundle(quote.BundleID)
	return QuoteResponse{
		BundleID:       quote.BundleID,
		BundleName:     bundle.Name,
		BasePrice:      quote.BasePrice,
		LoyaltyApplied: quote.LoyaltyApplied,
		CouponCode:     quote.CouponCode,
		CouponPercent:  quote.CouponPercent,
		FinalPrice:     quote.FinalPrice,
		Currency:       s.cfg.Currency,
		FreeRedemption: quote.FreeRedemption,
	}, nil
}

// CreateOrder opens a gateway order for the quoted amount. Fully discounted
// quotes never reach the gateway; callers are redirected to the redemption
// path instead.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error) {
	customerKey, err := domain.NormalizeCustomerKey(req.Email)
	if err != nil {
		return CreateOrderResponse{}, err
	}
	quote, err := s.Quote(ctx, req.BundleID, customerKey, req.CouponCode)
	if err != nil {
		return CreateOrderResponse{}, err
	}
	if quote.FreeRedemption {
		return CreateOrderResponse{}, domain.ErrOrderNotRequired
	}

	order, err := s.gateway.CreateOrder(ctx, quote.FinalPrice, s.cfg.Currency, "m47-"+uuid.NewString())
	if err != nil {
		return CreateOrderResponse{}, fmt.Errorf("%w: %v", domain.ErrPaymentRejected, err)
	}
	return CreateOrderResponse{
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.gateway.KeyID(),
	}, nil
}

// ConfirmPayment checks the gateway's payment proof and, on acceptance,
// issues a capability token and records the entitlement. Rejection is
// terminal for the attempt: no token, no entitlement, no partial state.
func (s *Service) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (AccessResponse, error) {
	customerKey, err := domain.NormalizeCustomerKey(req.Email)
	if err != nil {
		return AccessResponse{}, err
	}
	bundle, ok := s.catalog.Bundle(req.BundleID)
	if !ok {
		return AccessResponse{}, domain.ErrInvalidBundle
	}
	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		return AccessResponse{}, domain.ErrPaymentRejected
	}
	return s.issueAndRecord(ctx, customerKey, bundle.BundleID)
}

// RedeemFree grants access without payment, valid only for a 100%-off coupon.
func (s *Service) RedeemFree(ctx context.Context, req RedeemFreeRequest) (AccessResponse, error) {
	customerKey, err := domain.NormalizeCustomerKey(req.Email)
	if err != nil {
		return AccessResponse{}, err
	}
	quote, err := s.Quote(ctx, req.BundleID, customerKey, req.CouponCode)
	if err != nil {
		return AccessResponse{}, err
	}
	if !quote.FreeRedemption {
		return AccessResponse{}, domain.ErrCouponNotRedeemable
	}
	return s.issueAndRecord(ctx, customerKey, quote.BundleID)
}

// CheckAccess reuses an unexpired entitlement. It only consults the store;
// the payment gateway is never touched here.
func (s *Service) CheckAccess(ctx context.Context, req CheckAccessRequest) (CheckAccessResponse, error) {
	customerKey, err := domain.NormalizeCustomerKey(req.Email)
	if err != nil {
		return CheckAccessResponse{}, err
	}
	if _, ok := s.catalog.Bundle(req.BundleID); !ok {
		return CheckAccessResponse{}, domain.ErrInvalidBundle
	}

	entitlement, err := s.entitlements.Find(ctx, customerKey, req.BundleID)
	if err != nil {
		appLogger().WarnContext(ctx, "entitlement lookup failed",
			"operation", "check_access",
			"outcome", "degraded",
			"bundle_id", req.BundleID,
			"error", err.Error(),
		)
		entitlement = nil
	}
	if entitlement == nil {
		return CheckAccessResponse{Active: false}, nil
	}
	return CheckAccessResponse{Active: true, Token: entitlement.Token}, nil
}

// RetrieveFile verifies the capability token against the requested bundle and
// streams the file from storage. Every verification failure collapses into
// ErrInvalidToken; storage failures are a distinct, transient condition.
func (s *Service) RetrieveFile(ctx context.Context, token, bundleID, fileID string) (ports.FileHandle, error) {
	if _, ok := s.catalog.Bundle(bundleID); !ok {
		return ports.FileHandle{}, domain.ErrInvalidBundle
	}
	if _, err := s.issuer.Verify(token, bundleID); err != nil {
		return ports.FileHandle{}, domain.ErrInvalidToken
	}

	handle, err := s.storage.Fetch(ctx, fileID)
	if err != nil {
		return ports.FileHandle{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return handle, nil
}

func (s *Service) ListFiles(ctx context.Context, bundleID string) (ListFilesResponse, error) {
	bundle, ok := s.catalog.Bundle(bundleID)
	if !ok {
		return ListFilesResponse{}, domain.ErrInvalidBundle
	}
	files, err := s.storage.ListFolder(ctx, bundle.FolderID)
	if err != nil {
		return ListFilesResponse{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return ListFilesResponse{BundleID: bundle.BundleID, Files: files}, nil
}

// GrantLoyalty adds a customer to the permanent discount set. The shared
// secret is compared in constant time.
func (s *Service) GrantLoyalty(ctx context.Context, req GrantLoyaltyRequest) error {
	customerKey, err := domain.NormalizeCustomerKey(req.Email)
	if err != nil {
		return err
	}
	if s.cfg.LoyaltyGrantSecret == "" {
		return domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.cfg.LoyaltyGrantSecret)) != 1 {
		return domain.ErrUnauthorized
	}

	if err := s.loyalty.Grant(ctx, customerKey, s.nowFn()); err != nil {
		// Dropped grants are tolerated; the store owner can replay them.
		appLogger().WarnContext(ctx, "loyalty grant dropped",
			"operation", "grant_loyalty",
			"outcome", "degraded",
			"error", err.Error(),
		)
	}
	return nil
}

// issueAndRecord mints the capability token and persists the entitlement.
// A failed write never withholds the token: the customer has already paid.
func (s *Service) issueAndRecord(ctx context.Context, customerKey, bundleID string) (AccessResponse, error) {
	now := s.nowFn()
	expiresAt := now.Add(s.cfg.TokenTTL)
	token, err := s.issuer.Issue(ports.CapabilityClaims{
		BundleID:  bundleID,
		Subject:   customerKey,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return AccessResponse{}, fmt.Errorf("issue capability token: %w", err)
	}

	entitlement := domain.Entitlement{
		CustomerKey: customerKey,
		BundleID:    bundleID,
		Token:       token,
		CreatedAt:   now,
	}
	if err := s.entitlements.Record(ctx, entitlement, s.cfg.EntitlementTTL); err != nil {
		appLogger().WarnContext(ctx, "entitlement record dropped",
			"operation", "record_entitlement",
			"outcome", "degraded",
			"bundle_id", bundleID,
			"error", err.Error(),
		)
	}

	return AccessResponse{
		BundleID:  bundleID,
		Token:     token,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}
