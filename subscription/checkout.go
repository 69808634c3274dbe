package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/instantcurrency/rates/storage/types"
)

// EventType is the payment processor's event discriminator
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
)

// ErrMalformedEvent is returned when a payload cannot be read as a payment
// event envelope, or a recognized event is missing its customer email
var ErrMalformedEvent = errors.New("malformed payment event")

// LineItem is one purchased product inside a checkout session
type LineItem struct {
	ProductID   string
	Description string
	AmountTotal int64
}

// Event is the extracted view of one payment webhook payload. Only the
// fields the subscription store needs are pulled out; the rest of the
// envelope is ignored
type Event struct {
	Type       EventType
	Email      string
	CustomerID string
	Status     types.SubscriptionStatus
	Created    time.Time
	LineItems  []LineItem
}

// Recognized reports whether the event type carries subscription state
func (e *Event) Recognized() bool {
	switch e.Type {
	case EventCheckoutCompleted, EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

// ParseEvent extracts an Event from a raw webhook payload. Unrecognized
// event types parse successfully and are skipped by Apply
func ParseEvent(payload []byte) (*Event, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedEvent)
	}

	root := gjson.ParseBytes(payload)

	eventType := root.Get("type").String()
	object := root.Get("data.object")

	if eventType == "" || !object.Exists() {
		return nil, fmt.Errorf("%w: missing type or data.object", ErrMalformedEvent)
	}

	event := &Event{
		Type:       EventType(eventType),
		CustomerID: object.Get("customer").String(),
		Created:    time.Unix(root.Get("created").Int(), 0).UTC(),
	}

	switch event.Type {
	case EventCheckoutCompleted:
		event.Email = object.Get("customer_details.email").String()

		for _, item := range object.Get("line_items.data").Array() {
			event.LineItems = append(event.LineItems, LineItem{
				ProductID:   item.Get("price.product").String(),
				Description: item.Get("description").String(),
				AmountTotal: item.Get("amount_total").Int(),
			})
		}

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		event.Email = object.Get("metadata.email").String()
		event.Status = normalizeStatus(object.Get("status").String())

		for _, item := range object.Get("items.data").Array() {
			event.LineItems = append(event.LineItems, LineItem{
				ProductID: item.Get("price.product").String(),
			})
		}

		// Older subscription payloads only carry the product on the plan
		if len(event.LineItems) == 0 {
			if product := object.Get("plan.product").String(); product != "" {
				event.LineItems = append(event.LineItems, LineItem{ProductID: product})
			}
		}

	default:
		return event, nil
	}

	if event.Email == "" {
		return nil, fmt.Errorf("%w: no customer email in %s", ErrMalformedEvent, event.Type)
	}

	return event, nil
}

func normalizeStatus(raw string) types.SubscriptionStatus {
	switch raw {
	case "canceled", "cancelled":
		return types.SubscriptionCanceled
	case "", "active", "trialing":
		return types.SubscriptionActive
	default:
		return types.SubscriptionStatus(raw)
	}
}
