// Package file stores view sets as JSON files in a local directory.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
)

// Store is a file-based viewset.Store for CLI usage.
// Each record is one JSON file; the file name is derived from a hash of the
// view-set name so arbitrary labels are safe on every file system.
type Store struct {
	mu  sync.Mutex
	dir string
}

var _ viewset.Store = (*Store)(nil)

// New creates a store in dir. The directory will be created if it doesn't exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Begin implements viewset.Store.
func (s *Store) Begin(ctx context.Context, name string) (viewset.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tx{store: s}, nil
}

// List implements viewset.Store. Unreadable entries are skipped.
func (s *Store) List(ctx context.Context) ([]viewset.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []viewset.Record
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var rec viewset.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Delete implements viewset.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return viewset.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Close does nothing for the file store.
func (s *Store) Close() error { return nil }

// path converts a view-set name to a file path.
// Uses a hash-based directory structure to avoid too many files in one dir.
func (s *Store) path(name string) string {
	sum := sha256.Sum256([]byte(name))
	hash := hex.EncodeToString(sum[:])
	return filepath.Join(s.dir, hash[:2], hash[2:]+".json")
}

type tx struct {
	store   *Store
	pending []viewset.Record
	done    bool
}

func (t *tx) Save(ctx context.Context, rec viewset.Record) error {
	if t.done {
		return viewset.ErrTxDone
	}
	t.pending = append(t.pending, rec)
	return nil
}

// Commit links every staged record into place. Linking fails when the target
// exists, which detects conflicts without a separate check. Records linked
// before a failure are removed again.
func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return viewset.ErrTxDone
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var written []string
	undo := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}
	for _, rec := range t.pending {
		path := s.path(rec.Name)
		if err := link(path, rec); err != nil {
			undo()
			return err
		}
		written = append(written, path)
	}
	t.done = true
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.done = true
	t.pending = nil
	return nil
}

func link(path string, rec viewset.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rec.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pending-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", rec.Name, viewset.ErrConflict)
		}
		return fmt.Errorf("link %s: %w", rec.Name, err)
	}
	return nil
}
