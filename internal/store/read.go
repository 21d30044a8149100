package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/prodreg/internal/ir"
)

// ReadProduct retrieves a product record by id.
// Returns an ir.ErrNotFound error if the product was never registered.
func (s *Store) ReadProduct(ctx context.Context, id ir.ProductID) (ir.ProductRecord, error) {
	var (
		rec      ir.ProductRecord
		rawID    int64
		quantity int64
		hash     []byte
		owner    string
	)

	err := s.rdb.QueryRowContext(ctx, `
		SELECT id, quantity, hash, owner
		FROM products
		WHERE id = ?
	`, int64(id)).Scan(&rawID, &quantity, &hash, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ir.NewNotFoundError(id)
	}
	if err != nil {
		return rec, fmt.Errorf("read product: %w", err)
	}

	h, err := ir.HashFromBytes(hash)
	if err != nil {
		return rec, fmt.Errorf("read product %d: %w", id, err)
	}

	rec = ir.ProductRecord{
		ID:       ir.ProductID(rawID),
		Quantity: uint64(quantity),
		Hash:     h,
		Owner:    ir.Identity(owner),
	}
	return rec, nil
}

// Exists reports whether a product with the given id is registered.
func (s *Store) Exists(ctx context.Context, id ir.ProductID) (bool, error) {
	var found int
	err := s.rdb.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)
	`, int64(id)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return found == 1, nil
}

// ReadEvents returns up to limit events of a product with seq > afterSeq,
// ordered by seq ASC. A limit <= 0 means no limit.
//
// Returns an empty slice (not nil) when there is nothing to read, including
// for unregistered products.
func (s *Store) ReadEvents(ctx context.Context, id ir.ProductID, afterSeq int64, limit int) ([]ir.ProductEvent, error) {
	rows, err := s.rdb.QueryContext(ctx, `
		SELECT product_id, seq, event_type, event_data, timestamp
		FROM product_events
		WHERE product_id = ? AND seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, int64(id), afterSeq, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.ProductEvent{}
	for rows.Next() {
		var (
			ev  ir.ProductEvent
			pid int64
			ts  int64
		)
		if err := rows.Scan(&pid, &ev.Seq, &ev.EventType, &ev.EventData, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.ProductID = ir.ProductID(pid)
		ev.Timestamp = fromUnixNano(ts)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// ReadNotifications returns up to limit notifications with seq > afterSeq,
// in commit order. A limit <= 0 means no limit.
func (s *Store) ReadNotifications(ctx context.Context, afterSeq int64, limit int) ([]ir.Notification, error) {
	rows, err := s.rdb.QueryContext(ctx, `
		SELECT seq, id, kind, product_id, payload
		FROM notifications
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notes := []ir.Notification{}
	for rows.Next() {
		var (
			n       ir.Notification
			kind    string
			pid     int64
			payload string
		)
		if err := rows.Scan(&n.Seq, &n.ID, &kind, &pid, &payload); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = ir.NotificationKind(kind)
		n.ProductID = ir.ProductID(pid)
		if err := unmarshalPayload(&n, payload); err != nil {
			return nil, fmt.Errorf("notification %d: %w", n.Seq, err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notes, nil
}

// Stats summarizes the store contents.
type Stats struct {
	Products         int64 `json:"products"`
	Events           int64 `json:"events"`
	Notifications    int64 `json:"notifications"`
	LastNotification int64 `json:"last_notification_seq"`
}

// ReadStats counts rows in every table.
func (s *Store) ReadStats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.rdb.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM product_events),
			(SELECT COUNT(*) FROM notifications),
			(SELECT COALESCE(MAX(seq), 0) FROM notifications)
	`).Scan(&st.Products, &st.Events, &st.Notifications, &st.LastNotification)
	if err != nil {
		return st, fmt.Errorf("read stats: %w", err)
	}
	return st, nil
}

// sqlLimit maps "no limit" to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
