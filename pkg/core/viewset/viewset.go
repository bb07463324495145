// Package viewset builds and persists the named sheet collections submitted
// to the print subsystem.
//
// A view set is built fresh for every group of every batch run and persisted
// under "<label>_<token>", where token is a new random UUID. Earlier runs are
// never reused or overwritten, so repeated runs accumulate sets:
//
//	b := viewset.NewBuilder(store, logger)
//	vs := b.Build(group.Sheets)
//	name, err := b.Persist(ctx, vs, group.Label)
//
// Persistence always happens inside a store transaction ([WithTx]) that is
// released before Persist returns.
package viewset

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	sberrors "github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/observability"
)

// TxName is the name of the persistence transaction.
const TxName = "Create view set"

// nameSeparator joins the label and the token.
const nameSeparator = "_"

// Name composes a persisted view-set name.
func Name(label, token string) string {
	return label + nameSeparator + token
}

// Builder builds and persists view sets.
type Builder struct {
	store  Store
	logger *log.Logger
	token  func() string
	now    func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithTokenFunc replaces the UUID token generator.
func WithTokenFunc(fn func() string) Option {
	return func(b *Builder) { b.token = fn }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a builder persisting into store.
// A nil logger discards output.
func NewBuilder(store Store, logger *log.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	b := &Builder{
		store:  store,
		logger: logger,
		token:  uuid.NewString,
		now:    time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build inserts sheets into a new, unnamed view set in the given order.
// Duplicates are kept.
func (b *Builder) Build(sheets []host.Sheet) host.ViewSet {
	vs := host.ViewSet{Sheets: make([]host.Sheet, 0, len(sheets))}
	vs.Sheets = append(vs.Sheets, sheets...)
	return vs
}

// Persist saves vs under a fresh name derived from nameHint and returns that
// name. vs itself is not modified.
func (b *Builder) Persist(ctx context.Context, vs host.ViewSet, nameHint string) (string, error) {
	if err := sberrors.ValidateLabel(nameHint); err != nil {
		return "", err
	}
	name := Name(nameHint, b.token())
	rec := Record{
		Name:      name,
		Label:     nameHint,
		SheetIDs:  vs.SheetIDs(),
		CreatedAt: b.now().UTC(),
	}

	err := WithTx(ctx, b.store, TxName, func(ctx context.Context, tx Tx) error {
		return tx.Save(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			observability.Store().OnViewSetConflict(ctx, name)
			return "", sberrors.Wrap(sberrors.ErrCodeConflict, err, "persist view set %s", name)
		}
		return "", sberrors.Wrap(sberrors.ErrCodeStore, err, "persist view set %s", name)
	}

	observability.Store().OnViewSetSaved(ctx, name, len(rec.SheetIDs))
	b.logger.Debug("persisted view set", "name", name, "sheets", len(rec.SheetIDs))
	return name, nil
}
