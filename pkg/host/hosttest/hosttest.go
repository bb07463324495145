// Package hosttest provides in-memory host implementations for tests.
//
// [Document] is a fake document store built with a fluent API:
//
//	doc := hosttest.NewDocument("Tower").
//	    AddSheet(1, "A-101", "Plan", "A4-class").
//	    AddSheet(2, "A-102", "Roof", "")
//
// [Printer] records every call so tests can assert the exact sequence of
// driver selection, configuration and submission.
package hosttest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Document is an in-memory host.Document and host.Transactor.
type Document struct {
	mu       sync.Mutex
	title    string
	sheets   []host.Sheet
	views    []host.View
	elements []host.Element
	nextID   host.ElementID

	// Journal records "begin:name", "commit:name" and "rollback:name".
	Journal []string

	// Fail, when set, is returned by the named operation ("sheets", "views",
	// "elements", "element", "begin", "commit").
	Fail map[string]error
}

var (
	_ host.Document   = (*Document)(nil)
	_ host.Transactor = (*Document)(nil)
)

// NewDocument returns an empty document.
func NewDocument(title string) *Document {
	return &Document{title: title, nextID: 100000, Fail: map[string]error{}}
}

// AddSheet adds a sheet and, when titleBlock is non-empty, a title-block
// element named titleBlock owned by the sheet.
func (d *Document) AddSheet(id host.ElementID, number, name, titleBlock string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sheets = append(d.sheets, host.Sheet{ID: id, Number: number, Name: name})
	d.elements = append(d.elements, host.Element{ID: id, Name: name, Category: host.CategorySheets})
	if titleBlock != "" {
		d.nextID++
		d.elements = append(d.elements, host.Element{
			ID:       d.nextID,
			Name:     titleBlock,
			Category: host.CategoryTitleBlocks,
			Owner:    id,
		})
	}
	return d
}

// AddElement adds an arbitrary element.
func (d *Document) AddElement(e host.Element) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = append(d.elements, e)
	return d
}

// AddView adds a view.
func (d *Document) AddView(id host.ElementID, name string, vt host.ViewType) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.views = append(d.views, host.View{ID: id, Name: name, Type: vt})
	d.elements = append(d.elements, host.Element{ID: id, Name: name, Category: host.CategoryViews})
	return d
}

// Title implements host.Document.
func (d *Document) Title() string { return d.title }

// Sheets implements host.Document.
func (d *Document) Sheets(ctx context.Context) ([]host.Sheet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Fail["sheets"]; err != nil {
		return nil, err
	}
	return append([]host.Sheet(nil), d.sheets...), nil
}

// Views implements host.Document.
func (d *Document) Views(ctx context.Context) ([]host.View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Fail["views"]; err != nil {
		return nil, err
	}
	return append([]host.View(nil), d.views...), nil
}

// ElementsOf implements host.Document.
func (d *Document) ElementsOf(ctx context.Context, c host.Category, owner host.ElementID) ([]host.ElementID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Fail["elements"]; err != nil {
		return nil, err
	}
	var ids []host.ElementID
	for _, e := range d.elements {
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
func (d *Document) Element(ctx context.Context, id host.ElementID) (host.Element, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Fail["element"]; err != nil {
		return host.Element{}, false, err
	}
	for _, e := range d.elements {
		if e.ID == id {
			return e, true, nil
		}
	}
	return host.Element{}, false, nil
}

// Begin implements host.Transactor.
func (d *Document) Begin(ctx context.Context, name string) (host.Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Fail["begin"]; err != nil {
		return nil, err
	}
	d.Journal = append(d.Journal, "begin:"+name)
	return &transaction{doc: d, name: name}, nil
}

type transaction struct {
	doc  *Document
	name string
	done bool
}

func (t *transaction) Commit(ctx context.Context) error {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction %q already finished", t.name)
	}
	if err := t.doc.Fail["commit"]; err != nil {
		return err
	}
	t.done = true
	t.doc.Journal = append(t.doc.Journal, "commit:"+t.name)
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.doc.Journal = append(t.doc.Journal, "rollback:"+t.name)
	return nil
}

// Call is one recorded Printer call.
type Call struct {
	Op       string // "select", "papers" or "submit"
	Driver   string
	Settings host.PrintSettings
}

// Printer is a recording host.PrintSubsystem.
type Printer struct {
	mu      sync.Mutex
	drivers map[string][]host.PaperSize
	active  string
	seq     int

	Calls []Call
	Jobs  []host.Job

	// SubmitErr, when set, is returned by Submit.
	SubmitErr error
}

var _ host.PrintSubsystem = (*Printer)(nil)

// NewPrinter returns a printer with one driver offering papers.
func NewPrinter(driver string, papers ...host.PaperSize) *Printer {
	return &Printer{drivers: map[string][]host.PaperSize{driver: papers}}
}

// ISOPapers returns A0 to A4 in points.
func ISOPapers() []host.PaperSize {
	return []host.PaperSize{
		{Name: "A0", Width: 2383.94, Height: 3370.39},
		{Name: "A1", Width: 1683.78, Height: 2383.94},
		{Name: "A2", Width: 1190.55, Height: 1683.78},
		{Name: "A3", Width: 841.89, Height: 1190.55},
		{Name: "A4", Width: 595.28, Height: 841.89},
	}
}

// SelectDriver implements host.PrintSubsystem.
func (p *Printer) SelectDriver(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Op: "select", Driver: name})
	if _, ok := p.drivers[name]; !ok {
		return fmt.Errorf("driver %q is not installed", name)
	}
	p.active = name
	return nil
}

// PaperSizes implements host.PrintSubsystem.
func (p *Printer) PaperSizes(ctx context.Context) ([]host.PaperSize, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Op: "papers", Driver: p.active})
	if p.active == "" {
		return nil, host.ErrNoDriver
	}
	return append([]host.PaperSize(nil), p.drivers[p.active]...), nil
}

// Submit implements host.PrintSubsystem.
func (p *Printer) Submit(ctx context.Context, settings host.PrintSettings) (host.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	settings.ViewSet.Sheets = append([]host.Sheet(nil), settings.ViewSet.Sheets...)
	p.Calls = append(p.Calls, Call{Op: "submit", Driver: p.active, Settings: settings})
	if p.active == "" {
		return host.Job{}, host.ErrNoDriver
	}
	if p.SubmitErr != nil {
		return host.Job{}, p.SubmitErr
	}
	p.seq++
	job := host.Job{
		ID:          fmt.Sprintf("job-%d", p.seq),
		ViewSet:     settings.ViewSet.Name,
		Files:       []string{settings.ViewSet.Name + ".pdf"},
		Pages:       len(settings.ViewSet.Sheets),
		SubmittedAt: time.Unix(int64(p.seq), 0).UTC(),
	}
	p.Jobs = append(p.Jobs, job)
	return job, nil
}

// Submitted returns the settings of every submit call in order.
func (p *Printer) Submitted() []host.PrintSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []host.PrintSettings
	for _, c := range p.Calls {
		if c.Op == "submit" {
			out = append(out, c.Settings)
		}
	}
	return out
}

// Exporter is a recording host.Exporter that writes nothing.
type Exporter struct {
	mu     sync.Mutex
	Images []host.ImageExportOptions
	Models []string
	Err    error
}

var _ host.Exporter = (*Exporter)(nil)

// ExportImage implements host.Exporter.
func (e *Exporter) ExportImage(ctx context.Context, opts host.ImageExportOptions) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return "", e.Err
	}
	e.Images = append(e.Images, opts)
	return opts.FilePath + opts.FileType.Ext(), nil
}

// ExportModel implements host.Exporter.
func (e *Exporter) ExportModel(ctx context.Context, dir, filename string, opts host.ModelExportOptions) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return "", e.Err
	}
	path := filepath.Join(dir, filename)
	e.Models = append(e.Models, path)
	return path, nil
}
