package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/prodreg/internal/ir"
)

// CreateProduct inserts a product record and its ProductRegistered
// notification in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING to claim the id: if no row was inserted the
// id already exists and the call fails with ir.ErrAlreadyRegistered, leaving
// state unchanged.
func (s *Store) CreateProduct(ctx context.Context, rec ir.ProductRecord, at time.Time) (ir.Notification, error) {
	note, err := ir.NewRegisteredNotification(ir.ProductRegistered{
		ID:       rec.ID,
		Quantity: rec.Quantity,
		Hash:     rec.Hash,
		Owner:    rec.Owner,
	})
	if err != nil {
		return ir.Notification{}, fmt.Errorf("create product: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Notification{}, fmt.Errorf("create product: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO products
		(id, quantity, hash, owner, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		int64(rec.ID),
		int64(rec.Quantity),
		rec.Hash[:],
		string(rec.Owner),
		at.UnixNano(),
	)
	if err != nil {
		return ir.Notification{}, fmt.Errorf("create product: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return ir.Notification{}, fmt.Errorf("create product: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ir.Notification{}, ir.NewAlreadyRegisteredError(rec.ID, rec.Owner)
	}

	if err := insertNotification(ctx, tx, &note); err != nil {
		return ir.Notification{}, fmt.Errorf("create product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.Notification{}, fmt.Errorf("create product: commit: %w", err)
	}

	return note, nil
}

// AppendEvent appends an event to a product's history and records its
// ProductEvent notification in one transaction.
//
// Existence and ownership are re-checked inside the transaction, in that
// order. The stored timestamp is at, clamped to the previous event's
// timestamp so a history never goes backwards in time.
func (s *Store) AppendEvent(
	ctx context.Context,
	productID ir.ProductID,
	caller ir.Identity,
	eventType, eventData string,
	at time.Time,
) (ir.ProductEvent, ir.Notification, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.ProductEvent{}, ir.Notification{}, fmt.Errorf("append event: begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT owner FROM products WHERE id = ?`, int64(productID)).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ProductEvent{}, ir.Notification{}, ir.NewNotFoundError(productID)
	}
	if err != nil {
		return ir.ProductEvent{}, ir.Notification{}, fmt.Errorf("append event: read owner: %w", err)
	}
	if ir.Identity(owner) != caller {
		return ir.ProductEvent{}, ir.Notification{}, ir.NewUnauthorizedError(productID, caller)
	}

	var lastSeq, lastTS int64
	err = tx.QueryRowContext(ctx, `
		SELECT seq, timestamp FROM product_events
		WHERE product_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, int64(productID)).Scan(&lastSeq, &lastTS)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ir.ProductEvent{}, ir.Notification{}, fmt.Errorf("append event: read last event: %w", err)
	}

	ts := at.UnixNano()
	if lastSeq > 0 && ts < lastTS {
		ts = lastTS
	}

	event := ir.ProductEvent{
		ProductID: productID,
		Seq:       lastSeq + 1,
		EventType: eventType,
		EventData: eventData,
		Timestamp: fromUnixNano(ts),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO product_events
		(product_id, seq, event_type, event_data, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`,
		int64(event.ProductID),
		event.Seq,
		event.EventType,
		event.EventData,
		ts,
	)
	if err != nil {
		return ir.ProductEvent{}, ir.Notification{}, fmt.Errorf("append event: insert: %w", err)
	}

	note, err := ir.NewEventNotification(ir.ProductEventNotice{
		ProductID: event.ProductID,
		Seq:       event.Seq,
		EventType: event.EventType,
		EventData: event.EventData,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return ir.ProductEvent{}, ir.Notification{}, fmt.Errorf("append event: %w", err)
	}

	if err := insertNotification(ctx, tx, &note); err != nil {
		return ir.ProductEvent{}, ir.Notification{}, fmt.Errorf("append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.ProductEvent{}, ir.Notification{}, fmt.Errorf("append event: commit: %w", err)
	}

	return event, note, nil
}

// insertNotification appends n to the notification log and sets n.Seq to
// the assigned position.
func insertNotification(ctx context.Context, tx *sql.Tx, n *ir.Notification) error {
	payload, err := marshalPayload(*n)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO notifications
		(id, kind, product_id, payload)
		VALUES (?, ?, ?, ?)
	`,
		n.ID,
		string(n.Kind),
		int64(n.ProductID),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert notification: last insert id: %w", err)
	}
	n.Seq = seq
	return nil
}
