package storefront

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
)

// promotionObserver reports products that matched more than one promotion.
type promotionObserver struct {
	logger  logrus.FieldLogger
	counter prometheus.Counter
}

func (o promotionObserver) AmbiguousMatch(productID int64, chosen pricing.Promotion, candidates []pricing.Promotion) {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	o.logger.WithFields(logrus.Fields{
		"product_id":    productID,
		"promotion_id":  chosen.ID,
		"discount_rate": chosen.DiscountRate.String(),
		"candidates":    ids,
	}).Warn("multiple promotions eligible for product")
	o.counter.Inc()
}
