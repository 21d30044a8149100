// Package registry implements the product registry: exactly-once product
// registration, owner-only event appends, and the reads over both.
//
// # Operations
//
//   - RegisterProduct: claims an id for the caller, who becomes its owner
//   - RegisterEvent: appends a lifecycle event to a product's history
//   - GetProduct / Exists: read the write-once record
//   - History: lazy, restartable iteration over a product's events
//   - Notifications / Subscribe / Follow: the registry-wide change log
//
// # Precondition order
//
// RegisterEvent checks, in order: the product exists (NOT_FOUND), the caller
// is its owner (UNAUTHORIZED), type and data are non-blank
// (INVALID_ARGUMENT). An unauthorized caller on an unknown id therefore sees
// NOT_FOUND.
//
// # Concurrency
//
// A Registry is safe for concurrent use. Writes are serialized through one
// mutex that spans the store transaction and the broker publish, so live
// subscribers see notifications in commit order. Reads take no lock.
//
// Owner and existence are write-once, so the precondition checks may run
// before the write lock; the store re-checks both inside its transaction.
package registry
