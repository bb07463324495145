package project

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

// ErrTxOpen is returned by Begin while another transaction is open.
var ErrTxOpen = errors.New("a transaction is already open")

// transaction tracks the files written while it is open. Rolling back
// removes them, so a failed export leaves no partial output.
type transaction struct {
	p     *Project
	name  string
	files []string
	done  bool
}

// Begin implements host.Transactor. Transactions do not nest.
func (p *Project) Begin(ctx context.Context, name string) (host.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		return nil, fmt.Errorf("begin %q: %w (%q)", name, ErrTxOpen, p.active.name)
	}
	tx := &transaction{p: p, name: name}
	p.active = tx
	return tx, nil
}

// track records a written file in the open transaction, if any.
func (p *Project) track(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.active.files = append(p.active.files, path)
	}
}

func (t *transaction) Commit(ctx context.Context) error {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	if t.done {
		return fmt.Errorf("commit %q: transaction already finished", t.name)
	}
	t.finish("commit")
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	if t.done {
		return nil
	}
	var errs []error
	for i := len(t.files) - 1; i >= 0; i-- {
		if err := os.Remove(t.files[i]); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	t.finish("rollback")
	return errors.Join(errs...)
}

// finish must be called with p.mu held.
func (t *transaction) finish(op string) {
	t.done = true
	t.p.active = nil
	t.p.journal = append(t.p.journal, op+":"+t.name)
}
