package unit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

func TestQuoteBasePriceWithoutDiscounts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.QuotePrice(ctx, application.QuoteRequest{
		BundleID: "ds",
		Email:    "someone@example.com",
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if res.FinalPrice != 1900 {
		t.Fatalf("expected base price 1900, got %d", res.FinalPrice)
	}
	if res.LoyaltyApplied || res.CouponCode != "" {
		t.Fatalf("expected no discounts applied")
	}
}

func TestQuoteLoyaltyHalfPriceFloors(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.loyalty.add("loyal@example.com")

	res, err := f.service.QuotePrice(ctx, application.QuoteRequest{
		BundleID: "odd",
		Email:    "loyal@example.com",
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	// 1901 * 0.5 floors to 950.
	if res.FinalPrice != 950 {
		t.Fatalf("expected floored half price 950, got %d", res.FinalPrice)
	}
	if !res.LoyaltyApplied {
		t.Fatalf("expected loyalty discount applied")
	}
}

func TestQuoteStacksLoyaltyBeforeCoupon(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.loyalty.add("loyal@example.com")

	res, err := f.service.QuotePrice(ctx, application.QuoteRequest{
		BundleID:   "ds",
		Email:      "loyal@example.com",
		CouponCode: "es10",
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	// floor(floor(1900*0.5)*0.9) = floor(950*0.9) = 855.
	if res.FinalPrice != 855 {
		t.Fatalf("expected stacked price 855, got %d", res.FinalPrice)
	}
	if !res.LoyaltyApplied || res.CouponPercent != 10 {
		t.Fatalf("expected loyalty and 10%% coupon applied, got %+v", res)
	}
	if res.CouponCode != "ES10" {
		t.Fatalf("expected normalized coupon code ES10, got %s", res.CouponCode)
	}
}

func TestQuoteIgnoresUnknownAndBlankCoupons(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	for _, code := range []string{"NOPE123", "   ", ""} {
		res, err := f.service.QuotePrice(ctx, application.QuoteRequest{
			BundleID:   "ds",
			Email:      "someone@example.com",
			CouponCode: code,
		})
		if err != nil {
			t.Fatalf("quote with coupon %q failed: %v", code, err)
		}
		if res.FinalPrice != 1900 || res.CouponCode != "" {
			t.Fatalf("expected coupon %q ignored, got %+v", code, res)
		}
	}
}

func TestQuoteUnknownBundle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.QuotePrice(context.Background(), application.QuoteRequest{
		BundleID: "xyz",
		Email:    "someone@example.com",
	})
	if !errors.Is(err, domain.ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestQuoteLoyaltyStoreFailureDegradesToBasePrice(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.loyalty.failWith(errors.New("connection refused"))

	res, err := f.service.QuotePrice(context.Background(), application.QuoteRequest{
		BundleID: "ds",
		Email:    "someone@example.com",
	})
	if err != nil {
		t.Fatalf("quote should degrade, got error: %v", err)
	}
	if res.FinalPrice != 1900 || res.LoyaltyApplied {
		t.Fatalf("expected undiscounted quote in degraded mode, got %+v", res)
	}
}

func TestFullCouponQuoteIsFreeRedemption(t *testing.T) {
	t.Parallel()

	f := newFixture()
	res, err := f.service.QuotePrice(context.Background(), application.QuoteRequest{
		BundleID:   "ds",
		Email:      "someone@example.com",
		CouponCode: "LAUNCH100",
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !res.FreeRedemption || res.FinalPrice != 0 {
		t.Fatalf("expected free redemption at price 0, got %+v", res)
	}
}

func TestCreateOrderRejectsFreeRedemption(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.CreateOrder(context.Background(), application.CreateOrderRequest{
		BundleID:   "ds",
		Email:      "someone@example.com",
		CouponCode: "LAUNCH100",
	})
	if !errors.Is(err, domain.ErrOrderNotRequired) {
		t.Fatalf("expected ErrOrderNotRequired, got %v", err)
	}
	if f.gateway.createCalls() != 0 {
		t.Fatalf("gateway must not be contacted for a free redemption")
	}
}

func TestCreateOrderUsesQuotedAmount(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.loyalty.add("loyal@example.com")

	res, err := f.service.CreateOrder(context.Background(), application.CreateOrderRequest{
		BundleID:   "ds",
		Email:      "loyal@example.com",
		CouponCode: "ES10",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if res.Amount != 855 {
		t.Fatalf("expected order amount 855, got %d", res.Amount)
	}
	if res.OrderID == "" || res.KeyID == "" {
		t.Fatalf("expected order id and key id, got %+v", res)
	}
}

func TestConfirmPaymentIssuesTokenAndRecordsEntitlement(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.gateway.accept("order-1", "pay-1", "sig-1")

	res, err := f.service.ConfirmPayment(ctx, application.ConfirmPaymentRequest{
		BundleID:  "ds",
		Email:     "Buyer@Example.com",
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: "sig-1",
	})
	if err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected a capability token")
	}
	if _, err := f.issuer.Verify(res.Token, "ds"); err != nil {
		t.Fatalf("issued token should verify for its bundle: %v", err)
	}

	// Entitlement reuse is immediate, and keys are normalized system-wide.
	check, err := f.service.CheckAccess(ctx, application.CheckAccessRequest{
		BundleID: "ds",
		Email:    "  buyer@example.com ",
	})
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if !check.Active || check.Token != res.Token {
		t.Fatalf("expected active entitlement with the issued token, got %+v", check)
	}
}

func TestConfirmPaymentRejectedIsTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.service.ConfirmPayment(ctx, application.ConfirmPaymentRequest{
		BundleID:  "ds",
		Email:     "buyer@example.com",
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: "forged",
	})
	if !errors.Is(err, domain.ErrPaymentRejected) {
		t.Fatalf("expected ErrPaymentRejected, got %v", err)
	}

	check, err := f.service.CheckAccess(ctx, application.CheckAccessRequest{
		BundleID: "ds",
		Email:    "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if check.Active {
		t.Fatalf("rejected payment must not create an entitlement")
	}
}

func TestConfirmPaymentReturnsTokenWhenRecordDropped(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.gateway.accept("order-1", "pay-1", "sig-1")
	f.entitlements.failRecordWith(errors.New("connection refused"))

	res, err := f.service.ConfirmPayment(ctx, application.ConfirmPaymentRequest{
		BundleID:  "ds",
		Email:     "buyer@example.com",
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: "sig-1",
	})
	if err != nil {
		t.Fatalf("payment success must survive a dropped entitlement record: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("customer paid; token must still be returned")
	}
}

func TestRedeemFreeNeverTouchesGateway(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.RedeemFree(ctx, application.RedeemFreeRequest{
		BundleID:   "ds",
		Email:      "freebie@example.com",
		CouponCode: "launch100",
	})
	if err != nil {
		t.Fatalf("redeem free failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected a capability token")
	}
	if f.gateway.createCalls() != 0 || f.gateway.verifyCalls() != 0 {
		t.Fatalf("free redemption must bypass the payment gateway entirely")
	}

	check, err := f.service.CheckAccess(ctx, application.CheckAccessRequest{
		BundleID: "ds",
		Email:    "freebie@example.com",
	})
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if !check.Active {
		t.Fatalf("expected active entitlement after free redemption")
	}
}

func TestRedeemFreeRequiresFullCoupon(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.RedeemFree(context.Background(), application.RedeemFreeRequest{
		BundleID:   "ds",
		Email:      "someone@example.com",
		CouponCode: "ES10",
	})
	if !errors.Is(err, domain.ErrCouponNotRedeemable) {
		t.Fatalf("expected ErrCouponNotRedeemable, got %v", err)
	}
}

func TestCheckAccessWithoutEntitlement(t *testing.T) {
	t.Parallel()

	f := newFixture()
	check, err := f.service.CheckAccess(context.Background(), application.CheckAccessRequest{
		BundleID: "ds",
		Email:    "stranger@example.com",
	})
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if check.Active {
		t.Fatalf("expected no entitlement for unknown customer")
	}
}

func TestCheckAccessStoreFailureDegradesToInactive(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.entitlements.failFindWith(errors.New("connection refused"))

	check, err := f.service.CheckAccess(context.Background(), application.CheckAccessRequest{
		BundleID: "ds",
		Email:    "someone@example.com",
	})
	if err != nil {
		t.Fatalf("check access should degrade, got error: %v", err)
	}
	if check.Active {
		t.Fatalf("expected inactive result in degraded mode")
	}
}

func TestRetrieveFileStreamsContent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.storage.put("file-1", "notes.pdf", []byte("pdf-bytes"))

	token := f.issueToken(t, "ds", time.Now().UTC().Add(2*time.Hour))
	handle, err := f.service.RetrieveFile(ctx, token, "ds", "file-1")
	if err != nil {
		t.Fatalf("retrieve file failed: %v", err)
	}
	defer func() { _ = handle.Content.Close() }()

	if handle.Name != "notes.pdf" {
		t.Fatalf("expected attachment name notes.pdf, got %s", handle.Name)
	}
	data, err := io.ReadAll(handle.Content)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if string(data) != "pdf-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestRetrieveFileRejectsCrossBundleToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.storage.put("file-1", "notes.pdf", []byte("pdf-bytes"))

	token := f.issueToken(t, "oop_cg", time.Now().UTC().Add(2*time.Hour))
	_, err := f.service.RetrieveFile(context.Background(), token, "ds", "file-1")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for cross-bundle token, got %v", err)
	}
}

func TestRetrieveFileRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.storage.put("file-1", "notes.pdf", []byte("pdf-bytes"))

	token := f.issueToken(t, "ds", time.Now().UTC().Add(-time.Hour))
	_, err := f.service.RetrieveFile(context.Background(), token, "ds", "file-1")
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestRetrieveFileStorageFailureIsDistinctFromDenial(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.storage.failWith(errors.New("drive timeout"))

	token := f.issueToken(t, "ds", time.Now().UTC().Add(2*time.Hour))
	_, err := f.service.RetrieveFile(context.Background(), token, "ds", "file-1")
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("storage failure must not be reported as denial")
	}
}

func TestListFilesUnknownBundle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.ListFiles(context.Background(), "xyz")
	if !errors.Is(err, domain.ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestGrantLoyaltyRequiresSharedSecret(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	err := f.service.GrantLoyalty(ctx, application.GrantLoyaltyRequest{
		Email:  "vip@example.com",
		Secret: "wrong",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := f.service.GrantLoyalty(ctx, application.GrantLoyaltyRequest{
		Email:  " VIP@Example.com ",
		Secret: "grant-secret",
	}); err != nil {
		t.Fatalf("grant loyalty failed: %v", err)
	}

	res, err := f.service.QuotePrice(ctx, application.QuoteRequest{
		BundleID: "ds",
		Email:    "vip@example.com",
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !res.LoyaltyApplied || res.FinalPrice != 950 {
		t.Fatalf("expected loyalty pricing after grant, got %+v", res)
	}
}

func TestGrantLoyaltyIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	req := application.GrantLoyaltyRequest{Email: "vip@example.com", Secret: "grant-secret"}

	if err := f.service.GrantLoyalty(ctx, req); err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	if err := f.service.GrantLoyalty(ctx, req); err != nil {
		t.Fatalf("second grant should be a no-op, got %v", err)
	}
}

func newFixture() *fixture {
	catalog, err := domain.NewCatalog(
		[]domain.Bundle{
			{BundleID: "ds", Name: "Data Structures (DS)", FolderID: "folder-ds", BasePrice: 1900},
			{BundleID: "oop_cg", Name: "OOP & CG", FolderID: "folder-oop", BasePrice: 4900},
			{BundleID: "odd", Name: "Odd Priced", FolderID: "folder-odd", BasePrice: 1901},
		},
		[]domain.Coupon{
			{Code: "ES10", Percent: 10},
			{Code: "LAUNCH100", Percent: 100},
		},
	)
	if err != nil {
		panic(err)
	}

	issuer, err := security.NewCapabilitySigner("unit-test-secret")
	if err != nil {
		panic(err)
	}

	loyalty := &fakeLoyalty{members: map[string]bool{}}
	entitlements := &fakeEntitlements{items: map[string]domain.Entitlement{}}
	gateway := &fakeGateway{valid: map[string]string{}}
	fileStorage := &fakeStorage{
		names:    map[string]string{},
		contents: map[string][]byte{},
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:           2 * time.Hour,
			EntitlementTTL:     2 * time.Hour,
			Currency:           "INR",
			LoyaltyGrantSecret: "grant-secret",
		},
		Catalog:      catalog,
		Loyalty:      loyalty,
		Entitlements: entitlements,
		Issuer:       issuer,
		Gateway:      gateway,
		Storage:      fileStorage,
	})

	return &fixture{
		service:      svc,
		issuer:       issuer,
		loyalty:      loyalty,
		entitlements: entitlements,
		gateway:      gateway,
		storage:      fileStorage,
	}
}

type fixture struct {
	service      *application.Service
	issuer       *security.CapabilitySigner
	loyalty      *fakeLoyalty
	entitlements *fakeEntitlements
	gateway      *fakeGateway
	storage      *fakeStorage
}

func (f *fixture) issueToken(t *testing.T, bundleID string, expiresAt time.Time) string {
	t.Helper()
	token, err := f.issuer.Issue(ports.CapabilityClaims{
		BundleID:  bundleID,
		Subject:   "test@example.com",
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

type fakeLoyalty struct {
	mu      sync.Mutex
	members map[string]bool
	err     error
}

func (f *fakeLoyalty) add(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[key] = true
}

func (f *fakeLoyalty) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeLoyalty) IsMember(_ context.Context, customerKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.members[customerKey], nil
}

func (f *fakeLoyalty) Grant(_ context.Context, customerKey string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.members[customerKey] = true
	return nil
}

type fakeEntitlements struct {
	mu        sync.Mutex
	items     map[string]domain.Entitlement
	findErr   error
	recordErr error
}

func (f *fakeEntitlements) failFindWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findErr = err
}

func (f *fakeEntitlements) failRecordWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordErr = err
}

func (f *fakeEntitlements) Find(_ context.Context, customerKey, bundleID string) (*domain.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	ent, ok := f.items[customerKey+":"+bundleID]
	if !ok {
		return nil, nil
	}
	return &ent, nil
}

func (f *fakeEntitlements) Record(_ context.Context, entitlement domain.Entitlement, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.items[entitlement.CustomerKey+":"+entitlement.BundleID] = entitlement
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	valid   map[string]string
	creates int
	efforts int
}

func (f *fakeGateway) accept(orderID, paymentID, signature string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid[orderID+"|"+paymentID] = signature
}

func (f *fakeGateway) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeGateway) verifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.efforts
}

func (f *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, _ string) (ports.PaymentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return ports.PaymentOrder{
		OrderID:  "order-fake-1",
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.efforts++
	return f.valid[orderID+"|"+paymentID] == signature && signature != ""
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

type fakeStorage struct {
	mu       sync.Mutex
	names    map[string]string
	contents map[string][]byte
	err      error
}

func (f *fakeStorage) put(fileID, name string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[fileID] = name
	f.contents[fileID] = content
}

func (f *fakeStorage) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeStorage) ListFolder(_ context.Context, _ string) ([]ports.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ports.FileInfo, 0, len(f.names))
	for id, name := range f.names {
		out = append(out, ports.FileInfo{FileID: id, Name: name})
	}
	return out, nil
}

func (f *fakeStorage) Fetch(_ context.Context, fileID string) (ports.FileHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ports.FileHandle{}, f.err
	}
	content, ok := f.contents[fileID]
	if !ok {
		return ports.FileHandle{}, errors.New("file not found")
	}
	return ports.FileHandle{
		Name:    f.names[fileID],
		Size:    int64(len(content)),
		Content: io.NopCloser(bytes.NewReader(content)),
	}, nil
}
