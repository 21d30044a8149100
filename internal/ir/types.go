package ir

import (
	"math"
	"strconv"
	"time"
)

// ProductID identifies a product. Caller-supplied, positive, immutable.
//
// IDs are persisted as SQLite INTEGER, so values above math.MaxInt64 are
// rejected at the registry boundary.
type ProductID uint64

// MaxProductID is the largest id the store can persist.
const MaxProductID ProductID = math.MaxInt64

func (id ProductID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Identity is the opaque, already-authenticated identity of a caller.
// Authorization compares identities with plain equality.
type Identity string

// ProductRecord is the write-once identity tuple of a registered product.
// Field order is canonical: id, quantity, hash, owner.
type ProductRecord struct {
	ID       ProductID `json:"id"`
	Quantity uint64    `json:"quantity"`
	Hash     Hash      `json:"hash"`
	Owner    Identity  `json:"owner"`
}

// ProductEvent is one entry of a product's append-only history.
type ProductEvent struct {
	ProductID ProductID `json:"product_id"`
	Seq       int64     `json:"seq"` // 1-based position within the product's history
	EventType string    `json:"event_type"`
	EventData string    `json:"event_data"`
	Timestamp time.Time `json:"timestamp"`
}

// KnownEventTypes are the lifecycle tags offered by the registration form.
// The registry accepts any non-empty tag; this list is informational.
var KnownEventTypes = []string{
	"CREATED",
	"SHIPPED",
	"DELIVERED",
	"STORED",
	"PROCESSED",
	"QUALITY_CHECK",
	"SOLD",
}
