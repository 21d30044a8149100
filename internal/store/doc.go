// Package store provides SQLite-backed durable storage for the product registry.
//
// The store is append-only:
//   - Products: write-once identity rows (id, quantity, hash, owner)
//   - Product Events: per-product history, keyed by (product_id, seq)
//   - Notifications: registry-wide log of every committed state change
//
// # Atomicity
//
// Every write runs in one transaction that inserts the domain row and its
// notification together. Either both commit or neither does. Registration
// relies on the products primary key with ON CONFLICT DO NOTHING, so exactly
// one concurrent registration of an id can win.
//
// # Ordering
//
// Event seq is max(seq)+1 within the product, assigned inside the writer
// transaction. Notification seq is an AUTOINCREMENT key, so it is strictly
// increasing in commit order and never reused. All reads are ORDER BY seq ASC.
//
// # Database Configuration
//
//   - WAL mode: readers see the last committed snapshot while a write runs
//   - synchronous=FULL: a committed write survives power loss
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: events and notifications must reference a product
//
// File-backed stores keep one writer connection and a separate read-only
// pool. In-memory stores share a single connection for both.
package store
