package dto

import (
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/promotion"
)

type PromotionProduct struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Promotion struct {
	ID           int64              `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	StartTime    time.Time          `json:"startTime"`
	EndTime      time.Time          `json:"endTime"`
	DiscountRate string             `json:"discountRate"`
	Products     []PromotionProduct `json:"products"`
}

func FromPromotions(in []promotion.Promotion) []Promotion {
	out := make([]Promotion, 0, len(in))
	for _, p := range in {
		dp := Promotion{
			ID:           p.ID,
			Title:        p.Title,
			Description:  p.Description,
			StartTime:    p.StartTime,
			EndTime:      p.EndTime,
			DiscountRate: p.DiscountRate.StringFixed(2),
			Products:     make([]PromotionProduct, 0, len(p.Products)),
		}
		for _, pr := range p.Products {
			dp.Products = append(dp.Products, PromotionProduct{ID: pr.ID, Name: pr.Name, Slug: pr.Slug})
		}
		out = append(out, dp)
	}
	return out
}
