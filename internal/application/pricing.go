package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
)

// Quote runs the discount chain for one (customer, bundle, coupon) triple.
// The order is fixed: base price, then the loyalty half-price discount, then
// the coupon percentage, flooring after each step. Unknown or blank coupon
// codes are ignored rather than rejected.
func (s *Service) Quote(ctx context.Context, bundleID, customerKey, couponCode string) (domain.PriceQuote, error) {
	bundle, ok := s.catalog.Bundle(bundleID)
	if !ok {
		return domain.PriceQuote{}, domain.ErrInvalidBundle
	}

	quote := domain.PriceQuote{
		BundleID:  bundle.BundleID,
		BasePrice: bundle.BasePrice,
	}
	price := bundle.BasePrice

	loyal, err := s.loyalty.IsMember(ctx, customerKey)
	if err != nil {
		// Membership store failures degrade to "not loyal"; selling continues.
		appLogger().WarnContext(ctx, "loyalty lookup failed",
			"operation", "quote",
			"outcome", "degraded",
			"bundle_id", bundle.BundleID,
			"error", err.Error(),
		)
		loyal = false
	}
	if loyal {
		price = price * 50 / 100
		quote.LoyaltyApplied = true
	}

	if coupon, ok := s.catalog.Coupon(couponCode); ok {
		quote.CouponCode = coupon.Code
		quote.CouponPercent = coupon.Percent
		if coupon.Percent == 100 {
			quote.FreeRedemption = true
			quote.FinalPrice = 0
			return quote, nil
		}
		price = price * int64(100-coupon.Percent) / 100
	}

	quote.FinalPrice = price
	return quote, nil
}
