package dto

import (
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storefront"
)

type Choice struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type Product struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Category        string `json:"category"`
	CategoryName    string `json:"categoryName"`
	Label           string `json:"label,omitempty"`
	LabelName       string `json:"labelName,omitempty"`
	Price           string `json:"price"`
	ImageURL        string `json:"imageUrl"`
	Description     string `json:"description"`
	Stock           int    `json:"stock"`
	FarmLocation    string `json:"farmLocation,omitempty"`
	CarbonFootprint *int   `json:"carbonFootprint,omitempty"`
}

type Catalog struct {
	Products   []Product `json:"products"`
	Categories []Choice  `json:"categories"`
	Labels     []Choice  `json:"labels"`
}

type PromotionRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type ProductDetail struct {
	Product
	HasPromotion    bool          `json:"hasPromotion"`
	DiscountedPrice string        `json:"discountedPrice"`
	DiscountRate    string        `json:"discountRate"`
	Promotion       *PromotionRef `json:"promotion,omitempty"`
}

func FromItem(it catalog.Item) Product {
	p := Product{
		ID:              it.ID,
		Name:            it.Name,
		Slug:            it.Slug,
		Category:        string(it.Category),
		CategoryName:    it.Category.DisplayName(),
		Label:           string(it.Label),
		Price:           it.Price.StringFixed(2),
		ImageURL:        it.ImageURL,
		Description:     it.Description,
		Stock:           it.Stock,
		FarmLocation:    it.FarmLocation,
		CarbonFootprint: it.CarbonFootprint,
	}
	if it.Label != catalog.LabelNone {
		p.LabelName = it.Label.DisplayName()
	}
	return p
}

func FromCatalog(c storefront.Catalog) Catalog {
	out := Catalog{
		Products:   make([]Product, 0, len(c.Items)),
		Categories: choices(c.Facets.Categories),
		Labels:     choices(c.Facets.Labels),
	}
	for _, it := range c.Items {
		out.Products = append(out.Products, FromItem(it))
	}
	return out
}

func choices(in []catalog.Choice) []Choice {
	out := make([]Choice, 0, len(in))
	for _, c := range in {
		out = append(out, Choice{Key: c.Key, Name: c.Name})
	}
	return out
}

func FromProductView(pv storefront.ProductView) ProductDetail {
	d := ProductDetail{
		Product:         FromItem(pv.Item),
		HasPromotion:    pv.Promotion != nil,
		DiscountedPrice: pv.DiscountedPrice.StringFixed(2),
		DiscountRate:    pv.DiscountRate.StringFixed(2),
	}
	if pv.Promotion != nil {
		d.Promotion = &PromotionRef{ID: pv.Promotion.ID, Title: pv.Promotion.Title}
	}
	return d
}
