package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOrderPlaced = "OrderPlaced"
	orderPlacedSchema    = "contracts/events/storefront/OrderPlaced.v1.payload.schema.json"
)

type OrderPlacedItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// OrderPlacedPayload carries money as fixed two-decimal strings.
type OrderPlacedPayload struct {
	OrderID        string            `json:"orderId"`
	Slug           string            `json:"slug"`
	UserID         string            `json:"userId"`
	Items          []OrderPlacedItem `json:"items"`
	OriginalTotal  string            `json:"originalTotal"`
	DiscountAmount string            `json:"discountAmount"`
	Tax            string            `json:"tax"`
	FinalPrice     string            `json:"finalPrice"`
	Timestamp      time.Time         `json:"timestamp"`
}

type OrderPlacedEvent struct {
	EventEnvelope
	Payload OrderPlacedPayload `json:"payload"`
}

func newOrderPlacedEvent(meta EventMeta, seq int64, producer string, payload OrderPlacedPayload, occurredAt time.Time) OrderPlacedEvent {
	return OrderPlacedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeOrderPlaced,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        orderPlacedSchema,
		},
		Payload: payload,
	}
}

func validateOrderPlaced(ev OrderPlacedEvent) error {
	if err := ev.Validate(EventTypeOrderPlaced, 1); err != nil {
		return err
	}
	if ev.Payload.OrderID == "" || ev.Payload.UserID == "" {
		return fmt.Errorf("payload missing order or user id")
	}
	if len(ev.Payload.Items) == 0 {
		return fmt.Errorf("payload has no items")
	}
	if ev.Payload.OrderID != ev.PartitionKey {
		return fmt.Errorf("partitionKey %q does not match orderId", ev.PartitionKey)
	}
	return nil
}
