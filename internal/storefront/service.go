// Package storefront coordinates the catalog, promotion and order stores
// around the pricing engine.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/promotion"
)

var ErrCartEmpty = errors.New("cart is empty")

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o *order.Order, res pricing.Result) error
}

type Deps struct {
	Catalog    catalog.Repository
	Promotions promotion.Repository
	Orders     order.Repository
	Publisher  Publisher
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
}

type Service struct {
	catalog    catalog.Repository
	promotions promotion.Repository
	orders     order.Repository
	publisher  Publisher
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	engine     *pricing.Engine
	validate   *validator.Validate
}

func NewService(d Deps) *Service {
	return &Service{
		catalog:    d.Catalog,
		promotions: d.Promotions,
		orders:     d.Orders,
		publisher:  d.Publisher,
		metrics:    d.Metrics,
		logger:     d.Logger,
		engine:     pricing.NewEngine(promotionObserver{logger: d.Logger, counter: d.Metrics.AmbiguousPromotions}),
		validate:   newValidator(),
	}
}

// OrderView is an order together with its priced breakdown.
type OrderView struct {
	Order   *order.Order
	Pricing pricing.Result
}

type ProductView struct {
	Item            catalog.Item
	Promotion       *pricing.Promotion
	DiscountedPrice decimal.Decimal
	DiscountRate    decimal.Decimal
}

type Catalog struct {
	Items  []catalog.Item
	Facets catalog.Facets
}

func (s *Service) Browse(ctx context.Context, f catalog.Filter) (Catalog, error) {
	items, err := s.catalog.List(ctx, f)
	if err != nil {
		return Catalog{}, err
	}
	facets, err := s.catalog.Facets(ctx)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{Items: items, Facets: facets}, nil
}

// ProductView prices a single unit of the product at now.
func (s *Service) ProductView(ctx context.Context, slug string, now time.Time) (ProductView, error) {
	it, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return ProductView{}, err
	}
	promos, err := s.promotions.ForProducts(ctx, []int64{it.ID})
	if err != nil {
		return ProductView{}, err
	}
	lp, err := s.engine.PriceLineItem(pricing.LineItem{ProductID: it.ID, UnitPrice: it.Price, Quantity: 1}, now, promos)
	if err != nil {
		return ProductView{}, fmt.Errorf("price product %s: %w", slug, err)
	}
	return ProductView{
		Item:            it,
		Promotion:       lp.Promotion,
		DiscountedPrice: lp.DiscountedUnitPrice,
		DiscountRate:    lp.DiscountRate,
	}, nil
}

func (s *Service) ActivePromotions(ctx context.Context, now time.Time) ([]promotion.Promotion, error) {
	return s.promotions.ListActive(ctx, now)
}

func (s *Service) price(ctx context.Context, o *order.Order, at time.Time) (pricing.Result, error) {
	promos, err := s.promotions.ForProducts(ctx, o.ProductIDs())
	if err != nil {
		return pricing.Result{}, err
	}
	res, err := s.engine.ComputeFinalPrice(o.LineItems(), at, promos)
	if err != nil {
		return pricing.Result{}, fmt.Errorf("price order %s: %w", o.ID, err)
	}
	return res, nil
}

func (s *Service) openCart(ctx context.Context, userID string) (*order.Order, error) {
	cart, err := s.orders.OpenCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Lines) == 0 {
		return nil, ErrCartEmpty
	}
	return cart, nil
}

// Cart returns the open cart priced at now.
func (s *Service) Cart(ctx context.Context, userID string, now time.Time) (OrderView, error) {
	cart, err := s.openCart(ctx, userID)
	if err != nil {
		return OrderView{}, err
	}
	res, err := s.price(ctx, cart, now)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: cart, Pricing: res}, nil
}

func (s *Service) AddToCart(ctx context.Context, userID, slug string) error {
	it, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	err = s.addItem(ctx, userID, it.ID)
	if errors.Is(err, order.ErrCartGone) || errors.Is(err, order.ErrAlreadyFinalized) {
		// the cart was emptied or checked out in between; start a new one
		err = s.addItem(ctx, userID, it.ID)
	}
	if err != nil {
		return err
	}
	s.metrics.CartMutations.WithLabelValues("add").Inc()
	return nil
}

func (s *Service) addItem(ctx context.Context, userID string, productID int64) error {
	cart, err := s.orders.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.orders.AddItem(ctx, cart.ID, productID)
}

func (s *Service) RemoveFromCart(ctx context.Context, userID, slug string) error {
	it, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.orders.RemoveItem(ctx, userID, it.ID); err != nil {
		return err
	}
	s.metrics.CartMutations.WithLabelValues("remove").Inc()
	return nil
}

func (s *Service) RemoveSingleFromCart(ctx context.Context, userID, slug string) error {
	it, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.orders.DecrementItem(ctx, userID, it.ID); err != nil {
		return err
	}
	s.metrics.CartMutations.WithLabelValues("decrement").Inc()
	return nil
}

// Checkout prices the open cart at now and finalizes it with that snapshot.
// A publish failure is logged; the order stays placed.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest, now time.Time) (OrderView, error) {
	if err := s.validate.Struct(req); err != nil {
		return OrderView{}, validationError(err)
	}
	deliveryDate, err := parseDeliveryDate(req.DeliveryDate, now)
	if err != nil {
		return OrderView{}, err
	}

	cart, err := s.openCart(ctx, userID)
	if err != nil {
		return OrderView{}, err
	}
	res, err := s.price(ctx, cart, now)
	if err != nil {
		return OrderView{}, err
	}

	params := order.FinalizeParams{
		OrderID: cart.ID,
		UserID:  userID,
		Address: order.Address{
			UserID:               userID,
			Address1:             req.Address1,
			Address2:             req.Address2,
			Country:              req.Country,
			State:                req.State,
			ZipCode:              req.ZipCode,
			DeliveryInstructions: req.DeliveryInstructions,
		},
		Payment: order.Payment{
			UserID:     userID,
			Type:       order.PaymentType(req.PaymentType),
			NameOnCard: req.NameOnCard,
			CardLast4:  lastFour(req.CardNumber),
			Expiration: req.Expiration,
		},
		DeliveryDate:     deliveryDate,
		DeliveryTimeslot: order.Timeslot(req.DeliveryTimeslot),
		DiscountAmount:   res.TotalDiscount,
		FinalPrice:       res.FinalTotal,
		OrderedAt:        now,
		Lines:            cart.Lines,
	}
	if err := s.orders.Finalize(ctx, params); err != nil {
		return OrderView{}, err
	}

	cart.IsOrdered = true
	cart.Status = order.StatusPending
	cart.OrderedAt = &params.OrderedAt
	cart.DeliveryDate = &params.DeliveryDate
	cart.DeliveryTimeslot = params.DeliveryTimeslot
	cart.DiscountAmount = res.TotalDiscount
	cart.FinalPrice = decimal.NewNullDecimal(res.FinalTotal)

	s.metrics.OrdersPlaced.Inc()
	s.metrics.OrderValue.Observe(res.FinalTotal.InexactFloat64())

	log := s.logger.WithFields(logrus.Fields{
		"order_id":    cart.ID,
		"order_slug":  cart.Slug,
		"user_id":     userID,
		"final_price": res.FinalTotal.StringFixed(2),
	})
	if err := s.publisher.PublishOrderPlaced(ctx, cart, res); err != nil {
		s.metrics.EventPublishFailures.Inc()
		log.WithError(err).Error("publish OrderPlaced failed")
	} else {
		log.Info("order placed")
	}

	return OrderView{Order: cart, Pricing: res}, nil
}

func (s *Service) History(ctx context.Context, userID string) ([]order.Order, error) {
	return s.orders.History(ctx, userID)
}

// Detail reprices a finalized order at the moment it was placed. The stored
// DiscountAmount and FinalPrice remain the record of what was charged.
func (s *Service) Detail(ctx context.Context, userID, slug string) (OrderView, error) {
	o, err := s.orders.GetBySlug(ctx, userID, slug)
	if err != nil {
		return OrderView{}, err
	}
	at := o.CreatedAt
	if o.OrderedAt != nil {
		at = *o.OrderedAt
	}
	res, err := s.price(ctx, o, at)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: o, Pricing: res}, nil
}

func (s *Service) Reschedule(ctx context.Context, userID, slug string, req RescheduleRequest, now time.Time) error {
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}
	date, err := parseDeliveryDate(req.DeliveryDate, now)
	if err != nil {
		return err
	}
	return s.orders.Reschedule(ctx, userID, slug, date, order.Timeslot(req.DeliveryTimeslot))
}

// SetStatus moves an order through fulfilment; used by operators.
func (s *Service) SetStatus(ctx context.Context, slug string, status order.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	return s.orders.SetStatus(ctx, slug, status)
}
