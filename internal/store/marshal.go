package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/prodreg/internal/ir"
)

// marshalPayload converts a notification payload to canonical JSON TEXT.
// The stored text is exactly the bytes its ID was derived from.
func marshalPayload(n ir.Notification) (string, error) {
	payload, err := n.Payload()
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

type registeredPayload struct {
	ID       uint64  `json:"id"`
	Quantity uint64  `json:"quantity"`
	Hash     ir.Hash `json:"hash"`
	Owner    string  `json:"owner"`
}

type eventPayload struct {
	ProductID uint64 `json:"product_id"`
	Seq       int64  `json:"seq"`
	EventType string `json:"event_type"`
	EventData string `json:"event_data"`
	Timestamp int64  `json:"timestamp"`
}

// unmarshalPayload parses canonical JSON TEXT back into the typed payload
// selected by kind.
func unmarshalPayload(n *ir.Notification, data string) error {
	switch n.Kind {
	case ir.KindProductRegistered:
		var p registeredPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return fmt.Errorf("unmarshal registered payload: %w", err)
		}
		n.Registered = &ir.ProductRegistered{
			ID:       ir.ProductID(p.ID),
			Quantity: p.Quantity,
			Hash:     p.Hash,
			Owner:    ir.Identity(p.Owner),
		}
	case ir.KindProductEvent:
		var p eventPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return fmt.Errorf("unmarshal event payload: %w", err)
		}
		n.Event = &ir.ProductEventNotice{
			ProductID: ir.ProductID(p.ProductID),
			Seq:       p.Seq,
			EventType: p.EventType,
			EventData: p.EventData,
			Timestamp: fromUnixNano(p.Timestamp),
		}
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	return nil
}

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
