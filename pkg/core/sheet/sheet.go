// Package sheet partitions sheets by the title block placed on them.
//
// A sheet's label is the name of the first title-block element owned by the
// sheet. Sheets without a title block (or whose title block has no name) have
// no label and are left out of every group.
//
// Groups keep the order in which labels were first encountered, and sheets
// keep their encounter order within a group:
//
//	g := sheet.NewGrouper(doc, logger)
//	groups, err := g.Group(ctx, sheets)
//	for _, label := range groups.Labels() {
//	    fmt.Println(label, len(groups.Get(label)))
//	}
package sheet

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Label is a title-block label: the grouping key of a batch.
type Label = string

// Group is an ordered run of sheets sharing one label.
type Group struct {
	Label  Label
	Sheets []host.Sheet
}

// Groups is the result of Grouper.Group.
type Groups struct {
	order   []Label
	byLabel map[Label]*Group
	skipped []host.Sheet
}

// Labels returns labels in first-encounter order.
func (g *Groups) Labels() []Label {
	return append([]Label(nil), g.order...)
}

// Get returns the sheets labelled label, or nil.
func (g *Groups) Get(label Label) []host.Sheet {
	if grp, ok := g.byLabel[label]; ok {
		return grp.Sheets
	}
	return nil
}

// All returns the groups in label order.
func (g *Groups) All() []Group {
	out := make([]Group, len(g.order))
	for i, l := range g.order {
		out[i] = *g.byLabel[l]
	}
	return out
}

// Len returns the number of groups.
func (g *Groups) Len() int { return len(g.order) }

// Skipped returns the sheets that had no title-block label.
func (g *Groups) Skipped() []host.Sheet { return g.skipped }

// SheetCount returns the number of grouped sheets.
func (g *Groups) SheetCount() int {
	n := 0
	for _, grp := range g.byLabel {
		n += len(grp.Sheets)
	}
	return n
}

func (g *Groups) add(label Label, s host.Sheet) {
	grp, ok := g.byLabel[label]
	if !ok {
		grp = &Group{Label: label}
		g.byLabel[label] = grp
		g.order = append(g.order, label)
	}
	grp.Sheets = append(grp.Sheets, s)
}

// Grouper groups sheets of one document.
type Grouper struct {
	doc    host.Document
	logger *log.Logger
}

// NewGrouper creates a grouper reading title blocks from doc.
// A nil logger discards output.
func NewGrouper(doc host.Document, logger *log.Logger) *Grouper {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Grouper{doc: doc, logger: logger}
}

// LabelOf resolves the title-block label of s. The bool is false when the
// sheet has no title block.
func (g *Grouper) LabelOf(ctx context.Context, s host.Sheet) (Label, bool, error) {
	ids, err := g.doc.ElementsOf(ctx, host.CategoryTitleBlocks, s.ID)
	if err != nil {
		return "", false, fmt.Errorf("title blocks of sheet %d: %w", s.ID, err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	el, ok, err := g.doc.Element(ctx, ids[0])
	if err != nil {
		return "", false, fmt.Errorf("title block %d: %w", ids[0], err)
	}
	if !ok || el.Name == "" {
		return "", false, nil
	}
	return el.Name, true, nil
}

// Group partitions sheets by label.
func (g *Grouper) Group(ctx context.Context, sheets []host.Sheet) (*Groups, error) {
	groups := &Groups{byLabel: make(map[Label]*Group)}
	for _, s := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label, ok, err := g.LabelOf(ctx, s)
		if err != nil {
			return nil, err
		}
		if !ok {
			g.logger.Debug("sheet has no title block", "sheet", s.String())
			groups.skipped = append(groups.skipped, s)
			continue
		}
		groups.add(label, s)
	}
	g.logger.Debug("grouped sheets",
		"groups", groups.Len(),
		"sheets", groups.SheetCount(),
		"skipped", len(groups.skipped))
	return groups, nil
}
