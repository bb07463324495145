package viewset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Sentinel errors for view-set persistence.
var (
	// ErrConflict is returned by Tx.Save or Tx.Commit when a set with the same
	// name is already persisted.
	ErrConflict = errors.New("view set already exists")

	// ErrNotFound is returned by Store.Delete for unknown names.
	ErrNotFound = errors.New("view set not found")

	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("transaction already committed or rolled back")
)

// Record is a persisted view set.
type Record struct {
	Name      string           `json:"name" bson:"name"`
	Label     string           `json:"label" bson:"label"`
	SheetIDs  []host.ElementID `json:"sheet_ids" bson:"sheet_ids"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}

// Store persists named view sets.
//
// Implementations must reject a second set with an existing name with
// ErrConflict and must make a transaction's saves visible only on Commit.
type Store interface {
	// Begin opens a transaction. name describes the unit of work.
	Begin(ctx context.Context, name string) (Tx, error)

	// List returns all records ordered by creation time.
	List(ctx context.Context) ([]Record, error)

	// Delete removes the record called name.
	Delete(ctx context.Context, name string) error

	// Close releases backend resources.
	Close() error
}

// Tx is a store transaction. It satisfies host.Transaction.
type Tx interface {
	host.Transaction

	// Save stages rec for commit.
	Save(ctx context.Context, rec Record) error
}

// storeTransactor adapts a Store to host.Transactor so WithTx can reuse
// host.WithTransaction.
type storeTransactor struct {
	store Store
	tx    Tx
}

func (s *storeTransactor) Begin(ctx context.Context, name string) (host.Transaction, error) {
	tx, err := s.store.Begin(ctx, name)
	if err != nil {
		return nil, err
	}
	s.tx = tx
	return tx, nil
}

// WithTx runs fn in a store transaction named name. It commits when fn
// returns nil and rolls back on error or panic.
func WithTx(ctx context.Context, store Store, name string, fn func(ctx context.Context, tx Tx) error) error {
	st := &storeTransactor{store: store}
	return host.WithTransaction(ctx, st, name, func(ctx context.Context) error {
		return fn(ctx, st.tx)
	})
}

// Prune deletes every record whose label is label and returns how many were
// removed.
func Prune(ctx context.Context, store Store, label string) (int, error) {
	recs, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		if r.Label != label {
			continue
		}
		if err := store.Delete(ctx, r.Name); err != nil && !errors.Is(err, ErrNotFound) {
			return n, fmt.Errorf("delete %s: %w", r.Name, err)
		}
		n++
	}
	return n, nil
}
