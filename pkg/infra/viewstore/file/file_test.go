package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/storetest"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "viewsets"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func save(s viewset.Store, recs ...viewset.Record) error {
	return viewset.WithTx(context.Background(), s, viewset.TxName, func(ctx context.Context, tx viewset.Tx) error {
		for _, r := range recs {
			if err := tx.Save(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) viewset.Store { return newStore(t) })
}

func TestCommitIsAllOrNothing(t *testing.T) {
	s := newStore(t)
	existing := viewset.Record{Name: "taken", Label: "L", CreatedAt: time.Now()}
	if err := save(s, existing); err != nil {
		t.Fatal(err)
	}

	err := save(s, viewset.Record{Name: "fresh", Label: "L", CreatedAt: time.Now()}, existing)
	if !errors.Is(err, viewset.ErrConflict) {
		t.Fatalf("save error = %v, want ErrConflict", err)
	}
	recs, _ := s.List(context.Background())
	if len(recs) != 1 || recs[0].Name != "taken" {
		t.Errorf("List() = %+v, want only the existing record", recs)
	}
}

func TestListSkipsCorruptEntries(t *testing.T) {
	s := newStore(t)
	if err := save(s, viewset.Record{Name: "good", Label: "L", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	recs, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Name != "good" {
		t.Errorf("List() = %+v", recs)
	}
}

func TestNamesAreHashed(t *testing.T) {
	s := newStore(t)
	if err := save(s, viewset.Record{Name: "А4К_../../etc", Label: "А4К", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	path := s.path("А4К_../../etc")
	if filepath.Dir(filepath.Dir(path)) != s.Dir() {
		t.Errorf("path %q escapes the store dir", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("record file missing: %v", err)
	}
}
