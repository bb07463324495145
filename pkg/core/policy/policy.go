// Package policy maps title-block labels to paper formats.
//
// A [Table] is plain data: a set of entries keyed by label, looked up by exact
// string equality. There is no normalization and no fallback entry, so a
// label that differs from an entry only in case, whitespace or script (Latin
// "A" against Cyrillic "А") does not resolve.
//
// The built-in table returned by [Default] holds the two formats used by the
// original title-block families. Deployments extend it through the
// [[policy]] section of the configuration file.
package policy

import (
	"fmt"
	"sort"

	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Built-in labels. They are the title-block family names of the original
// project templates (Cyrillic letters).
const (
	LabelA4Portrait  = "А4К"
	LabelA3Landscape = "А3А"
)

// Policy is the paper setup for one title-block label.
type Policy struct {
	PaperSize   string
	Orientation host.Orientation
}

// String returns e.g. "A4 portrait".
func (p Policy) String() string {
	return fmt.Sprintf("%s %s", p.PaperSize, p.Orientation)
}

// Entry is one row of a Table.
type Entry struct {
	Label  string
	Policy Policy
}

// Table is a read-only lookup from label to Policy.
// A Table is safe for concurrent use because it is never mutated after New.
type Table struct {
	entries map[string]Policy
}

// New builds a table. Labels must be valid and unique; paper size names must
// be non-empty.
func New(entries []Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Policy, len(entries))}
	for _, e := range entries {
		if err := errors.ValidateLabel(e.Label); err != nil {
			return nil, err
		}
		if e.Policy.PaperSize == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "policy for %q has no paper size", e.Label)
		}
		if e.Policy.Orientation != host.Portrait && e.Policy.Orientation != host.Landscape {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "policy for %q has invalid orientation", e.Label)
		}
		if _, dup := t.entries[e.Label]; dup {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate policy label %q", e.Label)
		}
		t.entries[e.Label] = e.Policy
	}
	return t, nil
}

// Default returns the built-in table.
func Default() *Table {
	return &Table{entries: map[string]Policy{
		LabelA4Portrait:  {PaperSize: "A4", Orientation: host.Portrait},
		LabelA3Landscape: {PaperSize: "A3", Orientation: host.Landscape},
	}}
}

// Resolve returns the policy for label. The bool is false when the table has
// no entry with exactly this label; that is an expected outcome, not an error.
func (t *Table) Resolve(label string) (Policy, bool) {
	if t == nil {
		return Policy{}, false
	}
	p, ok := t.entries[label]
	return p, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns all entries sorted by label.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.entries))
	for label, p := range t.entries {
		out = append(out, Entry{Label: label, Policy: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
