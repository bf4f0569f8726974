package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
)

// Line is an order line joined with its catalog item. UnitPrice is frozen
// when the order is finalized.
type Line struct {
	ProductID int64
	Name      string
	Slug      string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Order is a cart while IsOrdered is false. DiscountAmount and FinalPrice
// are written once, when the cart is finalized.
type Order struct {
	ID               string
	UserID           string
	Slug             string
	TrackingNo       string
	IsOrdered        bool
	Status           Status
	CreatedAt        time.Time
	OrderedAt        *time.Time
	DeliveryDate     *time.Time
	DeliveryTimeslot Timeslot
	DiscountAmount   decimal.Decimal
	FinalPrice       decimal.NullDecimal
	Lines            []Line
}

func (o *Order) LineItems() []pricing.LineItem {
	items := make([]pricing.LineItem, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = pricing.LineItem{ProductID: l.ProductID, UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return items
}

func (o *Order) ProductIDs() []int64 {
	ids := make([]int64, 0, len(o.Lines))
	seen := make(map[int64]struct{}, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

type Address struct {
	ID                   int64
	UserID               string
	Address1             string
	Address2             string
	Country              string
	State                string
	ZipCode              string
	DeliveryInstructions string
}

// Payment keeps only the last four card digits.
type Payment struct {
	ID         int64
	UserID     string
	Type       PaymentType
	NameOnCard string
	CardLast4  string
	Expiration string
}

type FinalizeParams struct {
	OrderID          string
	UserID           string
	Address          Address
	Payment          Payment
	DeliveryDate     time.Time
	DeliveryTimeslot Timeslot
	DiscountAmount   decimal.Decimal
	FinalPrice       decimal.Decimal
	OrderedAt        time.Time
	// Lines are the priced lines; Finalize rejects the call when the stored
	// cart no longer matches them.
	Lines []Line
}
