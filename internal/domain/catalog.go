package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// Bundle is a static catalog entry for a priced collection of files.
// Entries are read-only at runtime; the catalog is built once at bootstrap.
type Bundle struct {
	BundleID  string
	Name      string
	FolderID  string
	BasePrice int64
}

// Coupon grants a percentage discount. A 100% coupon switches the purchase
// to the free-redemption path and never reaches the payment gateway.
type Coupon struct {
	Code    string
	Percent int
}

// Catalog holds the immutable bundle and coupon tables.
type Catalog struct {
	bundles map[string]Bundle
	coupons map[string]Coupon
}

func NewCatalog(bundles []Bundle, coupons []Coupon) (*Catalog, error) {
	c := &Catalog{
		bundles: make(map[string]Bundle, len(bundles)),
		coupons: make(map[string]Coupon, len(coupons)),
	}
	for _, b := range bundles {
		id := strings.TrimSpace(b.BundleID)
		if id == "" {
			return nil, fmt.Errorf("bundle with empty id")
		}
		if b.BasePrice < 0 {
			return nil, fmt.Errorf("bundle %s: negative base price", id)
		}
		if _, ok := c.bundles[id]; ok {
			return nil, fmt.Errorf("duplicate bundle id %s", id)
		}
		b.BundleID = id
		c.bundles[id] = b
	}
	for _, cp := range coupons {
		code := NormalizeCouponCode(cp.Code)
		if code == "" {
			return nil, fmt.Errorf("coupon with empty code")
		}
		if cp.Percent < 1 || cp.Percent > 100 {
			return nil, fmt.Errorf("coupon %s: percent must be 1..100, got %d", code, cp.Percent)
		}
		if _, ok := c.coupons[code]; ok {
			return nil, fmt.Errorf("duplicate coupon code %s", code)
		}
		cp.Code = code
		c.coupons[code] = cp
	}
	return c, nil
}

func (c *Catalog) Bundle(bundleID string) (Bundle, bool) {
	b, ok := c.bundles[strings.TrimSpace(bundleID)]
	return b, ok
}

// Coupon resolves a code after normalization. Empty and unknown codes both
// report absence; callers treat them identically.
func (c *Catalog) Coupon(code string) (Coupon, bool) {
	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return Coupon{}, false
	}
	cp, ok := c.coupons[normalized]
	return cp, ok
}

func (c *Catalog) Bundles() []Bundle {
	out := make([]Bundle, 0, len(c.bundles))
	for _, b := range c.bundles {
		out = append(out, b)
	}
	return out
}

// NormalizeCustomerKey maps an email address to the canonical customer key
// used for every lookup and every stored record. The same human must always
// map to the same key.
func NormalizeCustomerKey(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return trimmed, nil
}

// NormalizeCouponCode trims and upcases so comparison is case-insensitive.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
