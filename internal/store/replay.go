package store

import (
	"context"
	"fmt"

	"github.com/roach88/prodreg/internal/ir"
)

// Verification is the result of replaying the notification log against the
// product and event tables.
type Verification struct {
	Notifications int64    `json:"notifications"`
	Products      int64    `json:"products"`
	Events        int64    `json:"events"`
	Problems      []string `json:"problems"`
}

// OK reports whether the replay found no inconsistencies.
func (v Verification) OK() bool {
	return len(v.Problems) == 0
}

// replayBatch bounds memory while walking the log.
const replayBatch = 500

// VerifyLog replays every notification in seq order and checks that:
//   - each notification ID matches the hash of its stored payload
//   - every product has exactly one ProductRegistered notification
//   - every product event has exactly one ProductEvent notification, and
//     the payload agrees with the stored event
//   - event notifications for one product arrive in seq order
//
// Problems are collected rather than returned as errors so the caller can
// report all of them. A non-nil error means the store could not be read.
func (s *Store) VerifyLog(ctx context.Context) (Verification, error) {
	var v Verification
	v.Problems = []string{}

	registered := make(map[ir.ProductID]bool)
	lastEventSeq := make(map[ir.ProductID]int64)

	var after int64
	for {
		batch, err := s.ReadNotifications(ctx, after, replayBatch)
		if err != nil {
			return v, fmt.Errorf("verify log: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, n := range batch {
			v.Notifications++
			after = n.Seq

			payload, err := n.Payload()
			if err != nil {
				v.Problems = append(v.Problems, err.Error())
				continue
			}
			id, err := ir.NotificationID(payload)
			if err != nil {
				return v, fmt.Errorf("verify log: notification %d: %w", n.Seq, err)
			}
			if id != n.ID {
				v.Problems = append(v.Problems, fmt.Sprintf("notification %d: id %s does not match payload hash %s", n.Seq, n.ID, id))
			}

			switch n.Kind {
			case ir.KindProductRegistered:
				if registered[n.ProductID] {
					v.Problems = append(v.Problems, fmt.Sprintf("product %d: registered twice (notification %d)", n.ProductID, n.Seq))
				}
				registered[n.ProductID] = true
				if err := s.verifyRegistered(ctx, n, &v); err != nil {
					return v, err
				}
			case ir.KindProductEvent:
				if !registered[n.ProductID] {
					v.Problems = append(v.Problems, fmt.Sprintf("product %d: event notification %d precedes registration", n.ProductID, n.Seq))
				}
				if want := lastEventSeq[n.ProductID] + 1; n.Event.Seq != want {
					v.Problems = append(v.Problems, fmt.Sprintf("product %d: event seq %d, expected %d (notification %d)", n.ProductID, n.Event.Seq, want, n.Seq))
				}
				lastEventSeq[n.ProductID] = n.Event.Seq
				if err := s.verifyEvent(ctx, n, &v); err != nil {
					return v, err
				}
			}
		}
	}

	stats, err := s.ReadStats(ctx)
	if err != nil {
		return v, fmt.Errorf("verify log: %w", err)
	}
	v.Products = stats.Products
	v.Events = stats.Events

	if int64(len(registered)) != stats.Products {
		v.Problems = append(v.Problems, fmt.Sprintf("%d products stored but %d registrations logged", stats.Products, len(registered)))
	}
	var logged int64
	for _, n := range lastEventSeq {
		logged += n
	}
	if logged != stats.Events {
		v.Problems = append(v.Problems, fmt.Sprintf("%d events stored but %d event notifications logged", stats.Events, logged))
	}

	return v, nil
}

func (s *Store) verifyRegistered(ctx context.Context, n ir.Notification, v *Verification) error {
	rec, err := s.ReadProduct(ctx, n.ProductID)
	if ir.CodeOf(err) == ir.CodeNotFound {
		v.Problems = append(v.Problems, fmt.Sprintf("product %d: logged but not stored", n.ProductID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("verify log: %w", err)
	}
	p := n.Registered
	if rec.Quantity != p.Quantity || rec.Hash != p.Hash || rec.Owner != p.Owner {
		v.Problems = append(v.Problems, fmt.Sprintf("product %d: stored record differs from notification %d", n.ProductID, n.Seq))
	}
	return nil
}

func (s *Store) verifyEvent(ctx context.Context, n ir.Notification, v *Verification) error {
	events, err := s.ReadEvents(ctx, n.ProductID, n.Event.Seq-1, 1)
	if err != nil {
		return fmt.Errorf("verify log: %w", err)
	}
	if len(events) == 0 || events[0].Seq != n.Event.Seq {
		v.Problems = append(v.Problems, fmt.Sprintf("product %d: event %d logged but not stored", n.ProductID, n.Event.Seq))
		return nil
	}
	ev := events[0]
	if ev.EventType != n.Event.EventType || ev.EventData != n.Event.EventData || !ev.Timestamp.Equal(n.Event.Timestamp) {
		v.Problems = append(v.Problems, fmt.Sprintf("product %d: event %d differs from notification %d", n.ProductID, ev.Seq, n.Seq))
	}
	return nil
}
