package registry

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/pubsub"
)

// Store is the durable state a Registry runs on. *store.Store implements it.
//
// CreateProduct and AppendEvent must each be atomic: the domain row and its
// notification commit together or not at all.
type Store interface {
	CreateProduct(ctx context.Context, rec ir.ProductRecord, at time.Time) (ir.Notification, error)
	AppendEvent(ctx context.Context, productID ir.ProductID, caller ir.Identity, eventType, eventData string, at time.Time) (ir.ProductEvent, ir.Notification, error)
	ReadProduct(ctx context.Context, id ir.ProductID) (ir.ProductRecord, error)
	Exists(ctx context.Context, id ir.ProductID) (bool, error)
	ReadEvents(ctx context.Context, id ir.ProductID, afterSeq int64, limit int) ([]ir.ProductEvent, error)
	ReadNotifications(ctx context.Context, afterSeq int64, limit int) ([]ir.Notification, error)
}

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints operation IDs for log correlation.
type IDGenerator interface {
	Generate() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.Must(uuid.NewV7()).String() }

// DefaultPageSize is how many rows History and Notifications fetch per query.
const DefaultPageSize = 256

// Registry owns product records and their event histories.
type Registry struct {
	store    Store
	clock    Clock
	ids      IDGenerator
	broker   *pubsub.Broker[ir.Notification]
	logger   *slog.Logger
	pageSize int

	// mu orders store commits with broker publishes.
	mu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the wall clock used for event timestamps.
func WithClock(c Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithIDGenerator overrides the operation ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithPageSize sets the read page size for lazy iterators.
func WithPageSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber channel buffer.
func WithSubscriberBuffer(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.broker = pubsub.NewBrokerWithBuffer[ir.Notification](n)
		}
	}
}

// New creates a Registry over st. The caller keeps ownership of st.
func New(st Store, opts ...Option) *Registry {
	r := &Registry{
		store:    st,
		clock:    systemClock{},
		ids:      uuidGenerator{},
		logger:   slog.Default(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.broker == nil {
		r.broker = pubsub.NewBroker[ir.Notification]()
	}
	return r
}

// Close ends all live subscriptions. It does not close the store.
func (r *Registry) Close() {
	r.broker.Close()
}

// RegisterProduct registers product id with the caller as owner and emits
// ProductRegistered.
//
// Fails with ALREADY_REGISTERED if id is taken, or INVALID_ARGUMENT for a
// zero or out-of-range id, an out-of-range quantity or an empty caller.
func (r *Registry) RegisterProduct(ctx context.Context, id ir.ProductID, quantity uint64, hash ir.Hash, caller ir.Identity) (ir.ProductRegistered, error) {
	opID := r.ids.Generate()

	if err := validateRegistration(id, quantity, caller); err != nil {
		r.reject(ctx, opID, "register product", err)
		return ir.ProductRegistered{}, err
	}

	rec := ir.ProductRecord{ID: id, Quantity: quantity, Hash: hash, Owner: caller}

	r.mu.Lock()
	note, err := r.store.CreateProduct(ctx, rec, r.clock.Now())
	if err == nil {
		r.broker.Publish(note)
	}
	r.mu.Unlock()

	if err != nil {
		r.reject(ctx, opID, "register product", err)
		return ir.ProductRegistered{}, err
	}

	r.logger.InfoContext(ctx, "product registered",
		"op_id", opID,
		"product_id", uint64(id),
		"quantity", quantity,
		"owner", string(caller),
		"seq", note.Seq,
	)
	return *note.Registered, nil
}

// RegisterEvent appends an event to productID's history and emits
// ProductEvent. Only the product's owner may append.
func (r *Registry) RegisterEvent(ctx context.Context, productID ir.ProductID, eventType, eventData string, caller ir.Identity) (ir.ProductEventNotice, error) {
	opID := r.ids.Generate()

	if err := r.checkAppend(ctx, productID, eventType, eventData, caller); err != nil {
		r.reject(ctx, opID, "register event", err)
		return ir.ProductEventNotice{}, err
	}

	r.mu.Lock()
	_, note, err := r.store.AppendEvent(ctx, productID, caller, eventType, eventData, r.clock.Now())
	if err == nil {
		r.broker.Publish(note)
	}
	r.mu.Unlock()

	if err != nil {
		r.reject(ctx, opID, "register event", err)
		return ir.ProductEventNotice{}, err
	}

	r.logger.InfoContext(ctx, "product event registered",
		"op_id", opID,
		"product_id", uint64(productID),
		"event_type", eventType,
		"event_seq", note.Event.Seq,
		"seq", note.Seq,
	)
	return *note.Event, nil
}

// checkAppend runs the RegisterEvent preconditions in their contractual
// order: existence, ownership, then argument validity.
func (r *Registry) checkAppend(ctx context.Context, productID ir.ProductID, eventType, eventData string, caller ir.Identity) error {
	rec, err := r.store.ReadProduct(ctx, productID)
	if err != nil {
		return err
	}
	if rec.Owner != caller {
		return ir.NewUnauthorizedError(productID, caller)
	}
	if isBlank(eventType) {
		return ir.NewInvalidArgumentError(productID, "event type must not be empty")
	}
	if isBlank(eventData) {
		return ir.NewInvalidArgumentError(productID, "event data must not be empty")
	}
	return nil
}

func validateRegistration(id ir.ProductID, quantity uint64, caller ir.Identity) error {
	switch {
	case id == 0:
		return ir.NewInvalidArgumentError(id, "product id must be positive")
	case id > ir.MaxProductID:
		return ir.NewInvalidArgumentError(0, "product id %d exceeds maximum %d", uint64(id), uint64(ir.MaxProductID))
	case quantity > math.MaxInt64:
		return ir.NewInvalidArgumentError(id, "quantity %d exceeds maximum %d", quantity, uint64(math.MaxInt64))
	case isBlank(string(caller)):
		return ir.NewInvalidArgumentError(id, "caller identity must not be empty")
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// reject logs a failed operation. Domain failures are expected traffic and
// go to Debug; anything else is a storage fault.
func (r *Registry) reject(ctx context.Context, opID, op string, err error) {
	if code := ir.CodeOf(err); code != "" {
		r.logger.DebugContext(ctx, op+" rejected", "op_id", opID, "code", string(code), "error", err)
		return
	}
	r.logger.ErrorContext(ctx, op+" failed", "op_id", opID, "error", err)
}
