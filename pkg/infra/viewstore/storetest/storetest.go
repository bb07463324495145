// Package storetest is a conformance suite for viewset.Store backends.
//
// Backend tests call [Run] with a constructor returning an empty store:
//
//	storetest.Run(t, func(t *testing.T) viewset.Store { return newEmptyStore(t) })
package storetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Run exercises the viewset.Store contract against stores built by newStore.
// Every subtest gets its own store.
func Run(t *testing.T, newStore func(t *testing.T) viewset.Store) {
	t.Helper()

	t.Run("SaveAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		t0 := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

		mustSave(t, s, record("second", "А4К", t0.Add(time.Minute), 1, 3))
		mustSave(t, s, record("first", "А3А", t0, 2))

		recs, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("List() = %d records, want 2", len(recs))
		}
		if recs[0].Name != "first" || recs[1].Name != "second" {
			t.Errorf("List() order = [%s %s], want creation order", recs[0].Name, recs[1].Name)
		}
		got := recs[1]
		if got.Label != "А4К" || !reflect.DeepEqual(got.SheetIDs, []host.ElementID{1, 3}) || !got.CreatedAt.Equal(t0.Add(time.Minute)) {
			t.Errorf("record = %+v", got)
		}
	})

	t.Run("Conflict", func(t *testing.T) {
		s := newStore(t)
		r := record("dup", "L", time.Now(), 1)
		mustSave(t, s, r)
		if err := save(s, r); !errors.Is(err, viewset.ErrConflict) {
			t.Errorf("second save error = %v, want ErrConflict", err)
		}
	})

	t.Run("BeginCancelled", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Begin(ctx, "t"); !errors.Is(err, context.Canceled) {
			t.Errorf("Begin() error = %v, want context.Canceled", err)
		}
		if recs, _ := s.List(context.Background()); len(recs) != 0 {
			t.Errorf("cancelled Begin left records: %+v", recs)
		}
	})

	t.Run("Rollback", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		boom := errors.New("boom")
		err := viewset.WithTx(ctx, s, "t", func(ctx context.Context, tx viewset.Tx) error {
			if err := tx.Save(ctx, record("gone", "L", time.Now())); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithTx() error = %v", err)
		}
		if recs, _ := s.List(ctx); len(recs) != 0 {
			t.Errorf("rolled back record is visible: %+v", recs)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustSave(t, s, record("x", "L", time.Now()))
		if err := s.Delete(ctx, "x"); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if err := s.Delete(ctx, "x"); !errors.Is(err, viewset.ErrNotFound) {
			t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UniqueNames", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := viewset.NewBuilder(s, nil)
		vs := b.Build([]host.Sheet{{ID: 1}})
		const n = 20
		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			name, err := b.Persist(ctx, vs, "А4К")
			if err != nil {
				t.Fatalf("Persist() #%d error: %v", i, err)
			}
			seen[name] = true
		}
		pruned, err := viewset.Prune(ctx, s, "А4К")
		if err != nil {
			t.Fatal(err)
		}
		if len(seen) != n || pruned != n {
			t.Errorf("distinct names = %d, pruned = %d, want %d", len(seen), pruned, n)
		}
	})
}

func record(name, label string, at time.Time, ids ...host.ElementID) viewset.Record {
	if ids == nil {
		ids = []host.ElementID{}
	}
	return viewset.Record{Name: name, Label: label, SheetIDs: ids, CreatedAt: at.UTC().Truncate(time.Millisecond)}
}

func save(s viewset.Store, r viewset.Record) error {
	return viewset.WithTx(context.Background(), s, viewset.TxName, func(ctx context.Context, tx viewset.Tx) error {
		return tx.Save(ctx, r)
	})
}

func mustSave(t *testing.T, s viewset.Store, r viewset.Record) {
	t.Helper()
	if err := save(s, r); err != nil {
		t.Fatal(fmt.Errorf("save %s: %w", r.Name, err))
	}
}
