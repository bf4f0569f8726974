package promotion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
)

var ErrInvalidPromotion = errors.New("invalid promotion")

var maxRate = decimal.NewFromInt(100)

type Product struct {
	ID   int64
	Name string
	Slug string
}

// Promotion is a pricing.Promotion together with the catalog entries it covers.
type Promotion struct {
	pricing.Promotion
	Products []Product
}

// Validate checks the invariants the pricing engine relies on.
func Validate(p pricing.Promotion) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPromotion)
	}
	if !p.EndTime.After(p.StartTime) {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidPromotion, p.EndTime, p.StartTime)
	}
	if p.DiscountRate.IsNegative() || p.DiscountRate.GreaterThan(maxRate) {
		return fmt.Errorf("%w: discount rate %s outside [0, 100]", ErrInvalidPromotion, p.DiscountRate)
	}
	return nil
}
