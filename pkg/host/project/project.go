// Package project is a file-backed host: it loads a building model from a
// TOML project file and serves it through the host interfaces.
//
// A project file lists sheets, title blocks, views and model elements:
//
//	title = "Tower"
//
//	[[sheets]]
//	id = 1
//	number = "A-101"
//	name = "Plan"
//	title_block = "А4К"
//
//	[[title_blocks]]
//	id = 900
//	name = "А3А"
//	sheet = 2
//
//	[[views]]
//	id = 10
//	name = "Level 1"
//	type = "FloorPlan"
//	scale = 100
//
//	[[elements]]
//	id = 200
//	name = "Basic Wall"
//	category = "Walls"
//
// A sheet's title_block key is shorthand for a title-block element owned by
// that sheet; its id is derived from the sheet id. The [[title_blocks]] table
// places title blocks explicitly, so a sheet may have several (the first in
// file order wins when grouping) or one with an empty name.
//
// A [Project] is read-only after loading except for its transaction journal
// and the files its exports write.
package project

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

// titleBlockIDBase offsets the ids of title blocks declared inline on a sheet.
const titleBlockIDBase host.ElementID = 1 << 40

type file struct {
	Title       string       `toml:"title"`
	Sheets      []sheetRow   `toml:"sheets"`
	TitleBlocks []elementRow `toml:"title_blocks"`
	Views       []viewRow    `toml:"views"`
	Elements    []elementRow `toml:"elements"`
}

type sheetRow struct {
	ID         int64   `toml:"id"`
	Number     string  `toml:"number"`
	Name       string  `toml:"name"`
	TitleBlock *string `toml:"title_block"`
}

type viewRow struct {
	ID    int64  `toml:"id"`
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Scale int    `toml:"scale"`
}

type elementRow struct {
	ID       int64  `toml:"id"`
	Name     string `toml:"name"`
	Category string `toml:"category"`
	Sheet    int64  `toml:"sheet"`
}

// Option configures a Project.
type Option func(*Project)

// WithClock sets the clock used for file timestamps.
func WithClock(now host.Clock) Option {
	return func(p *Project) { p.now = now }
}

// Project is a loaded project file. It implements host.Document,
// host.Transactor and host.Exporter.
type Project struct {
	title    string
	sheets   []host.Sheet
	views    []host.View
	elements []host.Element
	byID     map[host.ElementID]int
	now      host.Clock

	mu     sync.Mutex
	active *transaction
	// journal records finished transactions as "commit:name" or "rollback:name".
	journal []string
}

var (
	_ host.Document   = (*Project)(nil)
	_ host.Transactor = (*Project)(nil)
	_ host.Exporter   = (*Project)(nil)
)

// Read decodes a project from r.
//
// Read returns an error if the TOML is malformed, if an id is zero or
// duplicated, if a view type is unknown, or if a title block refers to a
// sheet that does not exist.
func Read(r io.Reader, opts ...Option) (*Project, error) {
	var f file
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, fmt.Errorf("unknown key %q", keys[0].String())
	}

	p := &Project{
		title: f.Title,
		byID:  make(map[host.ElementID]int),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	sheetIDs := make(map[host.ElementID]bool, len(f.Sheets))
	for _, s := range f.Sheets {
		id := host.ElementID(s.ID)
		sh := host.Sheet{ID: id, Number: s.Number, Name: s.Name}
		if err := p.add(host.Element{ID: id, Name: sh.String(), Category: host.CategorySheets}); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sh, err)
		}
		p.sheets = append(p.sheets, sh)
		sheetIDs[id] = true
		if s.TitleBlock != nil {
			tb := host.Element{ID: titleBlockIDBase + id, Name: *s.TitleBlock, Category: host.CategoryTitleBlocks, Owner: id}
			if err := p.add(tb); err != nil {
				return nil, fmt.Errorf("sheet %s title block: %w", sh, err)
			}
		}
	}

	for _, tb := range f.TitleBlocks {
		owner := host.ElementID(tb.Sheet)
		if !sheetIDs[owner] {
			return nil, fmt.Errorf("title block %d: unknown sheet %d", tb.ID, tb.Sheet)
		}
		e := host.Element{ID: host.ElementID(tb.ID), Name: tb.Name, Category: host.CategoryTitleBlocks, Owner: owner}
		if err := p.add(e); err != nil {
			return nil, fmt.Errorf("title block %d: %w", tb.ID, err)
		}
	}

	for _, v := range f.Views {
		vt, err := host.ParseViewType(v.Type)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", v.Name, err)
		}
		view := host.View{ID: host.ElementID(v.ID), Name: v.Name, Type: vt, Scale: v.Scale}
		if err := p.add(host.Element{ID: view.ID, Name: view.Name, Category: host.CategoryViews}); err != nil {
			return nil, fmt.Errorf("view %q: %w", v.Name, err)
		}
		p.views = append(p.views, view)
	}

	for _, e := range f.Elements {
		if e.Category == "" {
			return nil, fmt.Errorf("element %d: missing category", e.ID)
		}
		el := host.Element{ID: host.ElementID(e.ID), Name: e.Name, Category: host.Category(e.Category), Owner: host.ElementID(e.Sheet)}
		if err := p.add(el); err != nil {
			return nil, fmt.Errorf("element %d: %w", e.ID, err)
		}
	}

	return p, nil
}

// Open reads the project file at path using [Read].
func Open(path string, opts ...Option) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	defer f.Close()

	p, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (p *Project) add(e host.Element) error {
	if e.ID == host.InvalidElementID {
		return fmt.Errorf("id must be non-zero")
	}
	if _, dup := p.byID[e.ID]; dup {
		return fmt.Errorf("duplicate id %d", e.ID)
	}
	p.byID[e.ID] = len(p.elements)
	p.elements = append(p.elements, e)
	return nil
}

// Title implements host.Document.
func (p *Project) Title() string { return p.title }

// Sheets implements host.Document.
func (p *Project) Sheets(ctx context.Context) ([]host.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]host.Sheet(nil), p.sheets...), nil
}

// Views implements host.Document.
func (p *Project) Views(ctx context.Context) ([]host.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]host.View(nil), p.views...), nil
}

// ElementsOf implements host.Document.
func (p *Project) ElementsOf(ctx context.Context, c host.Category, owner host.ElementID) ([]host.ElementID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []host.ElementID
	for _, e := range p.elements {
		if e.Category != c {
			continue
		}
		if owner != host.InvalidElementID && e.Owner != owner {
			continue
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// Element implements host.Document.
func (p *Project) Element(ctx context.Context, id host.ElementID) (host.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return host.Element{}, false, err
	}
	i, ok := p.byID[id]
	if !ok {
		return host.Element{}, false, nil
	}
	return p.elements[i], true, nil
}

// Journal returns the finished transactions in order.
func (p *Project) Journal() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.journal...)
}

// modelElements returns the elements that are not sheets, views or title blocks.
func (p *Project) modelElements() []host.Element {
	var out []host.Element
	for _, e := range p.elements {
		switch e.Category {
		case host.CategorySheets, host.CategoryViews, host.CategoryTitleBlocks:
			continue
		}
		out = append(out, e)
	}
	return out
}
