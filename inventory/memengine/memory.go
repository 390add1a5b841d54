package memengine

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	logMsgTxCommitted   = "memengine transaction committed"
	logMsgTxRolledBack  = "memengine transaction rolled back"
	logAttrError        = "error"
	logAttrDurationMS   = "duration_ms"
	logAttrMovementRows = "movement_rows"
)

// ErrDuplicateKey is returned when an insert collides with an existing id, serial or reference.
var ErrDuplicateKey = errors.New("duplicate key")

// Store is an in-memory inventory.Store.
type Store struct {
	mu               sync.RWMutex
	state            *state
	logger           inventory.Logger
	contextualLogger inventory.ContextualLogger
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
// Debug level: transaction outcomes with timing.
func WithLogger(logger inventory.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
func WithContextualLogger(logger inventory.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// NewStore creates an empty Store.
func NewStore(options ...Option) (*Store, error) {
	s := &Store{state: newState()}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// View runs fn against the committed state. The consistency level is irrelevant for an in-memory store.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx inventory.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(ctx, &tx{state: s.state})
}

// Update runs fn against a copy of the state and commits the copy if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	draft := s.state.clone()

	if err := fn(ctx, &tx{state: draft}); err != nil {
		s.log(ctx, logMsgTxRolledBack, logAttrError, err.Error(), logAttrDurationMS, time.Since(start).Milliseconds())
		return err
	}

	if err := ctx.Err(); err != nil {
		s.log(ctx, logMsgTxRolledBack, logAttrError, err.Error(), logAttrDurationMS, time.Since(start).Milliseconds())
		return errors.Join(inventory.ErrTransactionFailed, err)
	}

	appended := len(draft.movements) - len(s.state.movements)
	s.state = draft
	s.log(ctx, logMsgTxCommitted, logAttrMovementRows, appended, logAttrDurationMS, time.Since(start).Milliseconds())

	return nil
}

func (s *Store) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

type state struct {
	products     map[uuid.UUID]inventory.Product
	instances    map[uuid.UUID]inventory.ProductInstance
	reservations map[uuid.UUID]inventory.Reservation
	lineOwners   map[uuid.UUID]uuid.UUID
	movements    []inventory.StockMovement
}

func newState() *state {
	return &state{
		products:     make(map[uuid.UUID]inventory.Product),
		instances:    make(map[uuid.UUID]inventory.ProductInstance),
		reservations: make(map[uuid.UUID]inventory.Reservation),
		lineOwners:   make(map[uuid.UUID]uuid.UUID),
	}
}

// clone copies the maps. Reservations are stored as private deep copies and never mutated in place,
// so copying the map values is enough.
func (s *state) clone() *state {
	return &state{
		products:     maps.Clone(s.products),
		instances:    maps.Clone(s.instances),
		reservations: maps.Clone(s.reservations),
		lineOwners:   maps.Clone(s.lineOwners),
		movements:    slices.Clip(slices.Clone(s.movements)),
	}
}

// tx implements inventory.Tx on one state.
type tx struct {
	state *state
}

func (t *tx) Product(_ context.Context, id uuid.UUID) (inventory.Product, error) {
	product, ok := t.state.products[id]
	if !ok {
		return inventory.Product{}, inventory.NewNotFoundError("product", id)
	}

	return product, nil
}

func (t *tx) Products(_ context.Context) ([]inventory.Product, error) {
	products := slices.Collect(maps.Values(t.state.products))
	slices.SortFunc(products, func(a, b inventory.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return products, nil
}

func (t *tx) Instances(_ context.Context, productID uuid.UUID) ([]inventory.ProductInstance, error) {
	var instances []inventory.ProductInstance
	for _, instance := range t.state.instances {
		if instance.ProductID == productID {
			instances = append(instances, instance)
		}
	}

	slices.SortFunc(instances, func(a, b inventory.ProductInstance) int { return strings.Compare(a.Serial, b.Serial) })

	return instances, nil
}

func (t *tx) Instance(_ context.Context, id uuid.UUID) (inventory.ProductInstance, error) {
	instance, ok := t.state.instances[id]
	if !ok {
		return inventory.ProductInstance{}, inventory.NewNotFoundError("instance", id)
	}

	return instance, nil
}

func (t *tx) Commitments(_ context.Context, query inventory.CommitmentQuery) ([]inventory.Commitment, error) {
	var commitments []inventory.Commitment

	for _, r := range t.sortedReservations() {
		if r.Status != inventory.StatusConfirmed || !r.StockCommitted || r.ID == query.ExcludeReservationID {
			continue
		}

		for _, line := range r.Lines {
			if len(query.ProductIDs) > 0 && !slices.Contains(query.ProductIDs, line.ProductID) {
				continue
			}

			if query.Overlapping != nil && !line.Period.Overlaps(*query.Overlapping) {
				continue
			}

			commitments = append(commitments, inventory.LineCommitments(r.ID, line)...)
		}
	}

	return commitments, nil
}

func (t *tx) Reservation(_ context.Context, id uuid.UUID) (inventory.Reservation, error) {
	r, ok := t.state.reservations[id]
	if !ok {
		return inventory.Reservation{}, inventory.NewNotFoundError("reservation", id)
	}

	return r.Clone(), nil
}

func (t *tx) ReservationIDByLine(_ context.Context, lineID uuid.UUID) (uuid.UUID, error) {
	id, ok := t.state.lineOwners[lineID]
	if !ok {
		return uuid.Nil, inventory.NewNotFoundError("line", lineID)
	}

	return id, nil
}

func (t *tx) ReservationIDs(_ context.Context, query inventory.ReservationQuery) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	for _, r := range t.sortedReservations() {
		if query.Limit > 0 && len(ids) >= query.Limit {
			break
		}

		if query.Status != "" && r.Status != query.Status {
			continue
		}

		if !query.ExpiresBefore.IsZero() && (r.ExpiresAt.IsZero() || !r.ExpiresAt.Before(query.ExpiresBefore)) {
			continue
		}

		if (!query.LineStartsOn.IsZero() || query.LineDeliveryStatus != "") && !hasMatchingLine(r, query) {
			continue
		}

		ids = append(ids, r.ID)
	}

	return ids, nil
}

func (t *tx) Movements(_ context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	for _, m := range t.state.movements {
		if filter.Limit() > 0 && len(movements) >= filter.Limit() {
			break
		}

		if filter.Matches(m) {
			movements = append(movements, m)
		}
	}

	return movements, nil
}

// LockProducts is a no-op: Update already holds the store lock exclusively.
func (t *tx) LockProducts(_ context.Context, _ ...uuid.UUID) error {
	return nil
}

func (t *tx) SaveProduct(_ context.Context, product inventory.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	t.state.products[product.ID] = product

	return nil
}

func (t *tx) SaveInstance(_ context.Context, instance inventory.ProductInstance) error {
	if err := instance.Validate(); err != nil {
		return err
	}

	if _, ok := t.state.products[instance.ProductID]; !ok {
		return inventory.NewNotFoundError("product", instance.ProductID)
	}

	for _, existing := range t.state.instances {
		if existing.ID != instance.ID && existing.ProductID == instance.ProductID && existing.Serial == instance.Serial {
			return errors.Join(inventory.ErrWritingFailed, ErrDuplicateKey)
		}
	}

	t.state.instances[instance.ID] = instance

	return nil
}

func (t *tx) InsertReservation(_ context.Context, r inventory.Reservation) error {
	if _, exists := t.state.reservations[r.ID]; exists {
		return errors.Join(inventory.ErrWritingFailed, ErrDuplicateKey)
	}

	for _, existing := range t.state.reservations {
		if existing.Reference == r.Reference {
			return errors.Join(inventory.ErrWritingFailed, ErrDuplicateKey)
		}
	}

	t.store(r)

	return nil
}

func (t *tx) UpdateReservation(_ context.Context, r inventory.Reservation, expectedVersion int) error {
	current, ok := t.state.reservations[r.ID]
	if !ok {
		return inventory.NewNotFoundError("reservation", r.ID)
	}

	if current.Version != expectedVersion {
		return inventory.ErrConcurrencyConflict
	}

	for _, line := range current.Lines {
		delete(t.state.lineOwners, line.ID)
	}

	t.store(r)

	return nil
}

func (t *tx) AppendMovements(_ context.Context, movements ...inventory.StockMovement) error {
	t.state.movements = append(t.state.movements, movements...)

	return nil
}

func (t *tx) store(r inventory.Reservation) {
	t.state.reservations[r.ID] = r.Clone()
	for _, line := range r.Lines {
		t.state.lineOwners[line.ID] = r.ID
	}
}

func (t *tx) sortedReservations() []inventory.Reservation {
	reservations := slices.Collect(maps.Values(t.state.reservations))
	slices.SortFunc(reservations, func(a, b inventory.Reservation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return reservations
}

func hasMatchingLine(r inventory.Reservation, query inventory.ReservationQuery) bool {
	return slices.ContainsFunc(r.Lines, func(line inventory.ReservationLine) bool {
		if !query.LineStartsOn.IsZero() && !line.Period.Start.Equal(inventory.StartOfDay(query.LineStartsOn)) {
			return false
		}

		return query.LineDeliveryStatus == "" || line.DeliveryStatus == query.LineDeliveryStatus
	})
}
