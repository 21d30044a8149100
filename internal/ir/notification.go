package ir

import (
	"fmt"
	"time"
)

// NotificationKind names the fact a notification records.
type NotificationKind string

const (
	KindProductRegistered NotificationKind = "ProductRegistered"
	KindProductEvent      NotificationKind = "ProductEvent"
)

// ProductRegistered is emitted when a product is registered.
type ProductRegistered struct {
	ID       ProductID `json:"id"`
	Quantity uint64    `json:"quantity"`
	Hash     Hash      `json:"hash"`
	Owner    Identity  `json:"owner"`
}

// ProductEventNotice is emitted when an event is appended to a product.
type ProductEventNotice struct {
	ProductID ProductID `json:"product_id"`
	EventType string    `json:"event_type"`
	EventData string    `json:"event_data"`
	Timestamp time.Time `json:"timestamp"`

	// Seq is the event's position within the product's history.
	Seq int64 `json:"seq"`
}

// Notification is one entry of the registry-wide notification log.
// Exactly one of Registered and Event is set, matching Kind.
type Notification struct {
	Seq        int64               `json:"seq"`
	ID         string              `json:"id"`
	Kind       NotificationKind    `json:"kind"`
	ProductID  ProductID           `json:"product_id"`
	Registered *ProductRegistered  `json:"registered,omitempty"`
	Event      *ProductEventNotice `json:"event,omitempty"`
}

// NewRegisteredNotification builds the notification for a registration.
// Seq is assigned by the store on commit.
func NewRegisteredNotification(p ProductRegistered) (Notification, error) {
	id, err := NotificationID(p.canonicalMap())
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		ID:         id,
		Kind:       KindProductRegistered,
		ProductID:  p.ID,
		Registered: &p,
	}, nil
}

// NewEventNotification builds the notification for an event append.
func NewEventNotification(e ProductEventNotice) (Notification, error) {
	id, err := NotificationID(e.canonicalMap())
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		ID:        id,
		Kind:      KindProductEvent,
		ProductID: e.ProductID,
		Event:     &e,
	}, nil
}

// Payload returns the canonical map of the notification's payload.
func (n Notification) Payload() (map[string]any, error) {
	switch n.Kind {
	case KindProductRegistered:
		if n.Registered == nil {
			return nil, fmt.Errorf("notification %d: missing registered payload", n.Seq)
		}
		return n.Registered.canonicalMap(), nil
	case KindProductEvent:
		if n.Event == nil {
			return nil, fmt.Errorf("notification %d: missing event payload", n.Seq)
		}
		return n.Event.canonicalMap(), nil
	default:
		return nil, fmt.Errorf("notification %d: unknown kind %q", n.Seq, n.Kind)
	}
}

func (p ProductRegistered) canonicalMap() map[string]any {
	return map[string]any{
		"kind":     string(KindProductRegistered),
		"id":       uint64(p.ID),
		"quantity": p.Quantity,
		"hash":     p.Hash.String(),
		"owner":    string(p.Owner),
	}
}

func (e ProductEventNotice) canonicalMap() map[string]any {
	return map[string]any{
		"kind":       string(KindProductEvent),
		"product_id": uint64(e.ProductID),
		"seq":        e.Seq,
		"event_type": e.EventType,
		"event_data": e.EventData,
		"timestamp":  e.Timestamp.UnixNano(),
	}
}
