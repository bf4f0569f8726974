package dto

import (
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storefront"
)

const dateLayout = "2006-01-02"

type Line struct {
	ProductID           int64  `json:"productId"`
	Name                string `json:"name"`
	Slug                string `json:"slug"`
	Quantity            int    `json:"quantity"`
	UnitPrice           string `json:"unitPrice"`
	DiscountedUnitPrice string `json:"discountedUnitPrice"`
	DiscountRate        string `json:"discountRate"`
	OriginalPrice       string `json:"originalPrice"`
	Discount            string `json:"discount"`
	FinalPrice          string `json:"finalPrice"`
	PromotionID         *int64 `json:"promotionId,omitempty"`
}

type Pricing struct {
	OriginalTotal      string `json:"originalTotal"`
	TotalDiscount      string `json:"totalDiscount"`
	DiscountedSubtotal string `json:"discountedSubtotal"`
	Tax                string `json:"tax"`
	FinalTotal         string `json:"finalTotal"`
}

type Order struct {
	Slug             string     `json:"slug"`
	TrackingNo       string     `json:"trackingNo,omitempty"`
	IsOrdered        bool       `json:"isOrdered"`
	Status           string     `json:"status,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	OrderedAt        *time.Time `json:"orderedAt,omitempty"`
	DeliveryDate     string     `json:"deliveryDate,omitempty"`
	DeliveryTimeslot string     `json:"deliveryTimeslot,omitempty"`
	DiscountAmount   string     `json:"discountAmount,omitempty"`
	FinalPrice       string     `json:"finalPrice,omitempty"`
	Lines            []Line     `json:"lines"`
	Pricing          Pricing    `json:"pricing"`
}

// OrderSummary is a history row; amounts are the stored checkout snapshot.
type OrderSummary struct {
	Slug             string     `json:"slug"`
	TrackingNo       string     `json:"trackingNo"`
	Status           string     `json:"status"`
	OrderedAt        *time.Time `json:"orderedAt,omitempty"`
	DeliveryDate     string     `json:"deliveryDate,omitempty"`
	DeliveryTimeslot string     `json:"deliveryTimeslot,omitempty"`
	DiscountAmount   string     `json:"discountAmount"`
	FinalPrice       string     `json:"finalPrice,omitempty"`
	ItemCount        int        `json:"itemCount"`
}

func FromPricing(res pricing.Result) Pricing {
	return Pricing{
		OriginalTotal:      res.OriginalTotal.StringFixed(2),
		TotalDiscount:      res.TotalDiscount.StringFixed(2),
		DiscountedSubtotal: res.DiscountedSubtotal.StringFixed(2),
		Tax:                res.Tax.StringFixed(2),
		FinalTotal:         res.FinalTotal.StringFixed(2),
	}
}

func FromOrderView(v storefront.OrderView) Order {
	o := v.Order
	out := Order{
		Slug:             o.Slug,
		TrackingNo:       o.TrackingNo,
		IsOrdered:        o.IsOrdered,
		CreatedAt:        o.CreatedAt,
		OrderedAt:        o.OrderedAt,
		DeliveryTimeslot: string(o.DeliveryTimeslot),
		Lines:            make([]Line, 0, len(o.Lines)),
		Pricing:          FromPricing(v.Pricing),
	}
	if o.IsOrdered {
		out.Status = string(o.Status)
		out.DiscountAmount = o.DiscountAmount.StringFixed(2)
	}
	if o.DeliveryDate != nil {
		out.DeliveryDate = o.DeliveryDate.Format(dateLayout)
	}
	if o.FinalPrice.Valid {
		out.FinalPrice = o.FinalPrice.Decimal.StringFixed(2)
	}

	// pricing lines follow the order's line order
	for i, l := range o.Lines {
		line := Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Slug:      l.Slug,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
		}
		if i < len(v.Pricing.Lines) {
			lp := v.Pricing.Lines[i]
			line.DiscountedUnitPrice = lp.DiscountedUnitPrice.StringFixed(2)
			line.DiscountRate = lp.DiscountRate.StringFixed(2)
			line.OriginalPrice = lp.OriginalPrice.StringFixed(2)
			line.Discount = lp.Discount.StringFixed(2)
			line.FinalPrice = lp.FinalPrice.StringFixed(2)
			if lp.Promotion != nil {
				id := lp.Promotion.ID
				line.PromotionID = &id
			}
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func FromHistory(orders []order.Order) []OrderSummary {
	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		s := OrderSummary{
			Slug:             o.Slug,
			TrackingNo:       o.TrackingNo,
			Status:           string(o.Status),
			OrderedAt:        o.OrderedAt,
			DeliveryTimeslot: string(o.DeliveryTimeslot),
			DiscountAmount:   o.DiscountAmount.StringFixed(2),
		}
		if o.DeliveryDate != nil {
			s.DeliveryDate = o.DeliveryDate.Format(dateLayout)
		}
		if o.FinalPrice.Valid {
			s.FinalPrice = o.FinalPrice.Decimal.StringFixed(2)
		}
		for _, l := range o.Lines {
			s.ItemCount += l.Quantity
		}
		out = append(out, s)
	}
	return out
}
