package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/sheetbatch/pkg/core/export"
	"github.com/matzehuels/sheetbatch/pkg/core/policy"
	"github.com/matzehuels/sheetbatch/pkg/core/printing"
	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/host/project"
	"github.com/matzehuels/sheetbatch/pkg/host/spool"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/file"
)

const sample = `
title = "Tower"

[[sheets]]
id = 1
number = "A-101"
name = "Plan"
title_block = "А4К"

[[sheets]]
id = 2
number = "A-201"
name = "Section"
title_block = "А3А"

[[sheets]]
id = 3
number = "A-102"
name = "Roof"
title_block = "А4К"

[[sheets]]
id = 4
number = "A-000"
name = "Cover"

[[views]]
id = 10
name = "Level 1"
type = "FloorPlan"
scale = 100

[[elements]]
id = 200
name = "Basic Wall"
category = "Walls"
`

func loadProject(t *testing.T, src string) *project.Project {
	t.Helper()
	p, err := project.Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("project.Read() error: %v", err)
	}
	return p
}

type harness struct {
	runner  *Runner
	store   *file.Store
	spooler *spool.Spooler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := file.New(filepath.Join(t.TempDir(), "viewsets"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	sp, err := spool.New(filepath.Join(t.TempDir(), "spool"), spool.DefaultDrivers())
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	token := viewset.WithTokenFunc(func() string { n++; return fmt.Sprintf("%d", n) })
	return &harness{
		runner:  NewRunner(store, sp, nil, token),
		store:   store,
		spooler: sp,
	}
}

func (h *harness) records(t *testing.T) []viewset.Record {
	t.Helper()
	recs, err := h.store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func (h *harness) spooled(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.spooler.Dir())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Print.Driver != printing.DefaultDriver {
		t.Errorf("Driver = %q, want default", opts.Print.Driver)
	}
	if opts.Print.Range != host.RangeSelect {
		t.Errorf("Range = %s, want select", opts.Print.Range)
	}
	if opts.Policies.Len() != policy.Default().Len() {
		t.Error("nil policies should become the built-in table")
	}
	if opts.Logger == nil {
		t.Error("Logger should be set")
	}

	// Idempotent
	driver := opts.Print.Driver
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Print.Driver != driver {
		t.Error("Driver changed on second call")
	}
}

func TestOptionsRejectEmptyPolicyTable(t *testing.T) {
	empty, err := policy.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Policies: empty}
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestOptionsRejectUnsupportedRange(t *testing.T) {
	for _, r := range []host.PrintRange{host.RangeCurrent, host.RangeVisible} {
		opts := Options{Print: printing.Config{Range: r}}
		if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("range %s: error = %v, want INVALID_CONFIG", r, err)
		}
	}
}

func TestPrintZeroOptions(t *testing.T) {
	h := newHarness(t)
	doc := loadProject(t, sample)

	out, err := h.runner.Print(context.Background(), doc, Options{})
	if err != nil {
		t.Fatalf("Print() error: %v", err)
	}
	if !out.OK() || len(out.Groups) != 2 {
		t.Fatalf("Print() = %s with %d groups, want success with 2", out.Message(), len(out.Groups))
	}
	if n := len(h.records(t)); n != 2 {
		t.Errorf("stored view sets = %d, want 2", n)
	}
}

func TestPrintRejectsRangeBeforePersisting(t *testing.T) {
	h := newHarness(t)
	doc := loadProject(t, sample)

	_, err := h.runner.Print(context.Background(), doc, Options{Print: printing.Config{Range: host.RangeCurrent}})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("error = %v, want INVALID_CONFIG", err)
	}
	if n := len(h.records(t)); n != 0 {
		t.Errorf("stored view sets = %d, want 0", n)
	}
	if n := len(h.spooled(t)); n != 0 {
		t.Errorf("spooled files = %d, want 0", n)
	}
}

func TestPrint(t *testing.T) {
	h := newHarness(t)
	doc := loadProject(t, sample)

	out, err := h.runner.Print(context.Background(), doc, Options{Print: printing.DefaultConfig()})
	if err != nil {
		t.Fatalf("Print() error: %v", err)
	}
	if !out.OK() {
		t.Fatalf("Print() outcome = %s", out.Message())
	}
	if len(out.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(out.Groups))
	}
	if g := out.Groups[0]; g.Label != policy.LabelA4Portrait || g.Sheets != 2 || g.ViewSet != "А4К_1" {
		t.Errorf("first group = %+v", g)
	}
	if g := out.Groups[1]; g.Label != policy.LabelA3Landscape || g.Policy.Orientation != host.Landscape {
		t.Errorf("second group = %+v", g)
	}
	if len(out.Skipped) != 1 || out.Skipped[0].ID != 4 {
		t.Errorf("skipped = %v, want the cover sheet", out.Skipped)
	}

	recs := h.records(t)
	if len(recs) != 2 {
		t.Fatalf("stored view sets = %d, want 2", len(recs))
	}
	files := h.spooled(t)
	if len(files) != 2 {
		t.Errorf("spooled files = %v, want one combined file per group", files)
	}
	for _, g := range out.Groups {
		for _, f := range g.Job.Files {
			if _, err := os.Stat(f); err != nil {
				t.Errorf("job file missing: %v", err)
			}
		}
	}
}

func TestPrintAccumulatesViewSets(t *testing.T) {
	h := newHarness(t)
	doc := loadProject(t, sample)
	opts := Options{Print: printing.DefaultConfig()}

	for i := 0; i < 2; i++ {
		if _, err := h.runner.Print(context.Background(), doc, opts); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(h.records(t)); n != 4 {
		t.Errorf("stored view sets after two runs = %d, want 4", n)
	}
}

func TestPrintAborts(t *testing.T) {
	h := newHarness(t)
	doc := loadProject(t, sample)

	// Only the A4 label is mapped; the A3 group comes second.
	table, err := policy.New([]policy.Entry{
		{Label: policy.LabelA4Portrait, Policy: policy.Policy{PaperSize: "A4", Orientation: host.Portrait}},
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := h.runner.Print(context.Background(), doc, Options{Policies: table, Print: printing.DefaultConfig()})
	if err != nil {
		t.Fatalf("Print() error: %v", err)
	}
	if out.OK() || out.Reason != printing.ReasonFormatNotFound || out.Label != policy.LabelA3Landscape {
		t.Fatalf("outcome = %+v, want abort on %s", out, policy.LabelA3Landscape)
	}
	if len(out.Groups) != 1 {
		t.Errorf("completed groups = %d, want 1", len(out.Groups))
	}
	// The A3 set is saved before its lookup fails but never printed.
	if n := len(h.records(t)); n != 2 {
		t.Errorf("stored view sets = %d, want 2", n)
	}
	if !strings.HasPrefix(out.ViewSet, policy.LabelA3Landscape+"_") {
		t.Errorf("aborted view set = %q", out.ViewSet)
	}
	if n := len(h.spooled(t)); n != 1 {
		t.Errorf("spooled files = %d, want 1", n)
	}
}

func TestPrintUnknownDriver(t *testing.T) {
	h := newHarness(t)
	doc := loadProject(t, sample)

	_, err := h.runner.Print(context.Background(), doc, Options{Print: printing.Config{Driver: "Nope", Range: host.RangeSelect}})
	if !errors.Is(err, errors.ErrCodeDriverNotFound) {
		t.Errorf("error = %v, want DRIVER_NOT_FOUND", err)
	}
}

func TestPlan(t *testing.T) {
	h := newHarness(t)
	doc := loadProject(t, sample)

	table, err := policy.New([]policy.Entry{
		{Label: policy.LabelA4Portrait, Policy: policy.Policy{PaperSize: "B5", Orientation: host.Portrait}},
	})
	if err != nil {
		t.Fatal(err)
	}

	plan, err := h.runner.Plan(context.Background(), doc, Options{Policies: table, Print: printing.DefaultConfig()})
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if plan.OK() {
		t.Fatal("Plan() should report unresolved groups")
	}
	if len(plan.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(plan.Groups))
	}

	tests := []struct {
		label  string
		reason string
	}{
		{policy.LabelA4Portrait, "paper size B5 not offered by driver"},
		{policy.LabelA3Landscape, "no policy entry for label"},
	}
	for i, tt := range tests {
		g := plan.Groups[i]
		if g.Label != tt.label || g.Resolved || g.Reason != tt.reason {
			t.Errorf("group %d = %+v, want %s unresolved with %q", i, g, tt.label, tt.reason)
		}
	}
	if first, ok := plan.FirstUnresolved(); !ok || first.Label != policy.LabelA4Portrait {
		t.Errorf("FirstUnresolved() = %+v, %v", first, ok)
	}
	if len(plan.Skipped) != 1 {
		t.Errorf("skipped = %d, want 1", len(plan.Skipped))
	}

	if n := len(h.records(t)); n != 0 {
		t.Errorf("Plan() persisted %d view sets", n)
	}
	if n := len(h.spooled(t)); n != 0 {
		t.Errorf("Plan() spooled %d files", n)
	}
}

func TestPlanResolvesDefaultTable(t *testing.T) {
	h := newHarness(t)
	plan, err := h.runner.Plan(context.Background(), loadProject(t, sample), Options{Print: printing.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if !plan.OK() {
		t.Errorf("Plan() = %+v, want every group resolved", plan.Groups)
	}
	if _, ok := plan.FirstUnresolved(); ok {
		t.Error("FirstUnresolved() should find nothing")
	}
}

func TestRunnerWithoutPrinter(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	doc := loadProject(t, sample)
	if _, err := r.Print(context.Background(), doc, Options{Print: printing.DefaultConfig()}); err == nil {
		t.Error("Print() without printer should fail")
	}
	if _, err := r.Plan(context.Background(), doc, Options{Print: printing.DefaultConfig()}); err == nil {
		t.Error("Plan() without printer should fail")
	}
}

func TestExportImage(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	doc := loadProject(t, sample)
	dir := t.TempDir()

	path, err := r.ExportImage(context.Background(), doc, Options{Image: export.DefaultImageConfig(dir)})
	if err != nil {
		t.Fatalf("ExportImage() error: %v", err)
	}
	if want := filepath.Join(dir, "Level 1.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("image not written: %v", err)
	}
}

func TestExportImageViewNotFound(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	doc := loadProject(t, sample)

	cfg := export.DefaultImageConfig(t.TempDir())
	cfg.ViewType = host.ViewSection
	_, err := r.ExportImage(context.Background(), doc, Options{Image: cfg})
	if !errors.Is(err, errors.ErrCodeViewNotFound) {
		t.Errorf("error = %v, want VIEW_NOT_FOUND", err)
	}
}

func TestExportModel(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	doc := loadProject(t, sample)
	dir := t.TempDir()

	path, err := r.ExportModel(context.Background(), doc, Options{Model: export.ModelConfig{OutputDir: dir}})
	if err != nil {
		t.Fatalf("ExportModel() error: %v", err)
	}
	if want := filepath.Join(dir, "Tower.ifc"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "IFCBUILDINGELEMENTPROXY") {
		t.Error("model has no element entities")
	}
}
