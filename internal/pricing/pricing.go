// Package pricing computes order totals from line items and the promotions in
// effect at a given instant.
//
// All functions are pure: they read no clock, touch no storage and keep no
// state between calls. Intermediate amounts carry full decimal precision and
// are rounded half-to-even to cents only when surfaced through Result.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidLineItem = errors.New("invalid line item")

var (
	// TaxRate is applied to the rounded discounted subtotal.
	TaxRate = decimal.RequireFromString("0.13")

	hundred = decimal.NewFromInt(100)
)

const centPlaces = 2

type LineItem struct {
	ProductID int64
	UnitPrice decimal.Decimal
	Quantity  int
}

func (li LineItem) validate() error {
	if li.Quantity < 1 {
		return fmt.Errorf("%w: product %d quantity %d", ErrInvalidLineItem, li.ProductID, li.Quantity)
	}
	if li.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: product %d unit price %s", ErrInvalidLineItem, li.ProductID, li.UnitPrice)
	}
	return nil
}

type Promotion struct {
	ID                 int64
	Title              string
	Description        string
	StartTime          time.Time
	EndTime            time.Time
	DiscountRate       decimal.Decimal
	EligibleProductIDs []int64
	Active             bool
}

// InEffect reports whether p is active and now falls inside [StartTime, EndTime].
func (p Promotion) InEffect(now time.Time) bool {
	return p.Active && !now.Before(p.StartTime) && !now.After(p.EndTime)
}

func (p Promotion) Covers(productID int64) bool {
	for _, id := range p.EligibleProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

type LinePrice struct {
	ProductID           int64
	Quantity            int
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice decimal.Decimal
	DiscountRate        decimal.Decimal
	OriginalPrice       decimal.Decimal
	Discount            decimal.Decimal
	FinalPrice          decimal.Decimal
	Promotion           *Promotion
}

// Breakdown holds unrounded order totals.
type Breakdown struct {
	OriginalTotal      decimal.Decimal
	TotalDiscount      decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	Lines              []LinePrice
}

// Result is the customer-facing pricing of an order, rounded to cents.
type Result struct {
	OriginalTotal      decimal.Decimal
	TotalDiscount      decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	Tax                decimal.Decimal
	FinalTotal         decimal.Decimal
	Lines              []LinePrice
}

// Observer receives notifications the engine emits while pricing.
type Observer interface {
	// AmbiguousMatch is called when more than one promotion is eligible for
	// a product. chosen is the promotion the engine applied.
	AmbiguousMatch(productID int64, chosen Promotion, candidates []Promotion)
}

type nopObserver struct{}

func (nopObserver) AmbiguousMatch(int64, Promotion, []Promotion) {}

type Engine struct {
	observer Observer
}

func NewEngine(observer Observer) *Engine {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{observer: observer}
}

var defaultEngine = NewEngine(nil)

// SelectEligiblePromotion picks the promotion applied to productID at now.
// Among eligible promotions the highest DiscountRate wins and an exact tie
// goes to the lowest ID, so the outcome does not depend on input order.
func (e *Engine) SelectEligiblePromotion(productID int64, now time.Time, promotions []Promotion) (Promotion, bool) {
	var candidates []Promotion
	for _, p := range promotions {
		if p.InEffect(now) && p.Covers(productID) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Promotion{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if c := candidates[i].DiscountRate.Cmp(candidates[j].DiscountRate); c != 0 {
			return c > 0
		}
		return candidates[i].ID < candidates[j].ID
	})

	chosen := candidates[0]
	if len(candidates) > 1 {
		e.observer.AmbiguousMatch(productID, chosen, candidates)
	}
	return chosen, true
}

func (e *Engine) PriceLineItem(item LineItem, now time.Time, promotions []Promotion) (LinePrice, error) {
	if err := item.validate(); err != nil {
		return LinePrice{}, err
	}

	original := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	lp := LinePrice{
		ProductID:           item.ProductID,
		Quantity:            item.Quantity,
		UnitPrice:           item.UnitPrice,
		DiscountedUnitPrice: item.UnitPrice,
		DiscountRate:        decimal.Zero,
		OriginalPrice:       original,
		Discount:            decimal.Zero,
		FinalPrice:          original,
	}

	promo, ok := e.SelectEligiblePromotion(item.ProductID, now, promotions)
	if !ok {
		return lp, nil
	}

	discount := clamp(original.Mul(promo.DiscountRate).Div(hundred), decimal.Zero, original)
	unitDiscount := clamp(item.UnitPrice.Mul(promo.DiscountRate).Div(hundred), decimal.Zero, item.UnitPrice)

	lp.Promotion = &promo
	lp.DiscountRate = promo.DiscountRate
	lp.Discount = discount
	lp.FinalPrice = original.Sub(discount)
	lp.DiscountedUnitPrice = item.UnitPrice.Sub(unitDiscount)
	return lp, nil
}

// PriceOrder prices every line in order. DiscountedSubtotal is derived from
// the accumulated totals, never from the per-line final prices.
func (e *Engine) PriceOrder(items []LineItem, now time.Time, promotions []Promotion) (Breakdown, error) {
	b := Breakdown{
		OriginalTotal: decimal.Zero,
		TotalDiscount: decimal.Zero,
		Lines:         make([]LinePrice, 0, len(items)),
	}
	for _, it := range items {
		lp, err := e.PriceLineItem(it, now, promotions)
		if err != nil {
			return Breakdown{}, err
		}
		b.OriginalTotal = b.OriginalTotal.Add(lp.OriginalPrice)
		b.TotalDiscount = b.TotalDiscount.Add(lp.Discount)
		b.Lines = append(b.Lines, lp)
	}
	b.DiscountedSubtotal = b.OriginalTotal.Sub(b.TotalDiscount)
	return b, nil
}

// ComputeTax returns the unrounded tax on the cent-rounded subtotal.
func ComputeTax(discountedSubtotal decimal.Decimal) decimal.Decimal {
	return roundCents(discountedSubtotal).Mul(TaxRate)
}

func (e *Engine) ComputeFinalPrice(items []LineItem, now time.Time, promotions []Promotion) (Result, error) {
	b, err := e.PriceOrder(items, now, promotions)
	if err != nil {
		return Result{}, err
	}

	// The discount is derived from the rounded totals so that
	// OriginalTotal - TotalDiscount == DiscountedSubtotal holds to the cent.
	original := roundCents(b.OriginalTotal)
	subtotal := roundCents(b.DiscountedSubtotal)
	tax := ComputeTax(b.DiscountedSubtotal)

	res := Result{
		OriginalTotal:      original,
		TotalDiscount:      original.Sub(subtotal),
		DiscountedSubtotal: subtotal,
		Tax:                roundCents(tax),
		FinalTotal:         roundCents(subtotal.Add(tax)),
		Lines:              make([]LinePrice, len(b.Lines)),
	}
	for i, lp := range b.Lines {
		res.Lines[i] = roundLine(lp)
	}
	return res, nil
}

func SelectEligiblePromotion(productID int64, now time.Time, promotions []Promotion) (Promotion, bool) {
	return defaultEngine.SelectEligiblePromotion(productID, now, promotions)
}

func PriceLineItem(item LineItem, now time.Time, promotions []Promotion) (LinePrice, error) {
	return defaultEngine.PriceLineItem(item, now, promotions)
}

func PriceOrder(items []LineItem, now time.Time, promotions []Promotion) (Breakdown, error) {
	return defaultEngine.PriceOrder(items, now, promotions)
}

func ComputeFinalPrice(items []LineItem, now time.Time, promotions []Promotion) (Result, error) {
	return defaultEngine.ComputeFinalPrice(items, now, promotions)
}

func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(centPlaces)
}

func roundLine(lp LinePrice) LinePrice {
	lp.UnitPrice = roundCents(lp.UnitPrice)
	lp.DiscountedUnitPrice = roundCents(lp.DiscountedUnitPrice)
	lp.OriginalPrice = roundCents(lp.OriginalPrice)
	lp.FinalPrice = roundCents(lp.FinalPrice)
	lp.Discount = lp.OriginalPrice.Sub(lp.FinalPrice)
	return lp
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
