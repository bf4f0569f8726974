package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/pricing"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/sequence"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type SequenceSource interface {
	Next(ctx context.Context, stream sequence.Stream, aggregateID string) (int64, error)
}

type Publisher struct {
	ch                 channel
	seq                SequenceSource
	producerIdentifier string
	now                func() time.Time
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seq SequenceSource, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch channel, seq SequenceSource, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}
	return &Publisher{
		ch:                 ch,
		seq:                seq,
		producerIdentifier: producer,
		now:                time.Now,
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishOrderPlaced emits OrderPlaced for a finalized order, partitioned by order id.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order, res pricing.Result) error {
	timestamp := p.now().UTC()
	if o.OrderedAt != nil {
		timestamp = o.OrderedAt.UTC()
	}

	payload := OrderPlacedPayload{
		OrderID:        o.ID,
		Slug:           o.Slug,
		UserID:         o.UserID,
		OriginalTotal:  res.OriginalTotal.StringFixed(2),
		DiscountAmount: res.TotalDiscount.StringFixed(2),
		Tax:            res.Tax.StringFixed(2),
		FinalPrice:     res.FinalTotal.StringFixed(2),
		Timestamp:      timestamp,
	}
	for _, l := range o.Lines {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
		})
	}

	meta := EventMeta{
		CorrelationID: middleware.GetCorrelationID(ctx),
		PartitionKey:  o.ID,
	}

	seq, err := p.seq.Next(ctx, sequence.Orders, o.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newOrderPlacedEvent(meta, seq, p.producerIdentifier, payload, timestamp)
	if err := validateOrderPlaced(env); err != nil {
		return fmt.Errorf("invalid OrderPlaced: %w", err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}

	return p.publishJSON(ctx, OrderPlacedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// NopPublisher drops events; used when publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, *order.Order, pricing.Result) error {
	return nil
}
