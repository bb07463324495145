package project

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/sheetbatch/pkg/core/sheet"
	"github.com/matzehuels/sheetbatch/pkg/host"
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

[[sheets]]
id = 3
number = "A-000"
name = "Cover"

[[title_blocks]]
id = 900
name = "А3А"
sheet = 2

[[title_blocks]]
id = 901
name = "Stamp"
sheet = 2

[[views]]
id = 10
name = "Level 1"
type = "FloorPlan"
scale = 100

[[elements]]
id = 200
name = "Basic Wall"
category = "Walls"

[[elements]]
id = 201
name = "Door 'D1'"
category = "Doors"
`

func load(t *testing.T, src string) *Project {
	t.Helper()
	p, err := Read(strings.NewReader(src), WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	return p
}

func TestRead(t *testing.T) {
	p := load(t, sample)
	ctx := context.Background()

	if p.Title() != "Tower" {
		t.Errorf("Title() = %q", p.Title())
	}
	sheets, _ := p.Sheets(ctx)
	if len(sheets) != 3 || sheets[0].Number != "A-101" {
		t.Errorf("Sheets() = %v", sheets)
	}
	views, _ := p.Views(ctx)
	if len(views) != 1 || views[0].Type != host.ViewFloorPlan || views[0].Scale != 100 {
		t.Errorf("Views() = %v", views)
	}

	tbs, _ := p.ElementsOf(ctx, host.CategoryTitleBlocks, 2)
	if !reflect.DeepEqual(tbs, []host.ElementID{900, 901}) {
		t.Errorf("title blocks of sheet 2 = %v", tbs)
	}
	all, _ := p.ElementsOf(ctx, host.CategoryTitleBlocks, host.InvalidElementID)
	if len(all) != 3 {
		t.Errorf("all title blocks = %v", all)
	}

	e, ok, err := p.Element(ctx, 900)
	if err != nil || !ok || e.Name != "А3А" || e.Owner != 2 {
		t.Errorf("Element(900) = %+v, %v, %v", e, ok, err)
	}
	if _, ok, _ := p.Element(ctx, 12345); ok {
		t.Error("Element(12345) should not exist")
	}
}

func TestReadGroupsByTitleBlock(t *testing.T) {
	p := load(t, sample)
	sheets, _ := p.Sheets(context.Background())

	groups, err := sheet.NewGrouper(p, nil).Group(context.Background(), sheets)
	if err != nil {
		t.Fatal(err)
	}
	if got := groups.Labels(); !reflect.DeepEqual(got, []string{"А4К", "А3А"}) {
		t.Errorf("Labels() = %v", got)
	}
	if len(groups.Skipped()) != 1 || groups.Skipped()[0].ID != 3 {
		t.Errorf("Skipped() = %v", groups.Skipped())
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"malformed", "title = ", "decode"},
		{"unknown key", "titel = \"x\"", "unknown key"},
		{"zero id", "[[sheets]]\nname = \"x\"", "non-zero"},
		{"duplicate id", "[[sheets]]\nid = 1\n[[views]]\nid = 1\ntype = \"FloorPlan\"", "duplicate id"},
		{"unknown view type", "[[views]]\nid = 1\ntype = \"Plan\"", "unknown view type"},
		{"orphan title block", "[[title_blocks]]\nid = 5\nname = \"x\"\nsheet = 9", "unknown sheet"},
		{"element without category", "[[elements]]\nid = 5", "missing category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Read() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tower.toml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err != nil {
		t.Errorf("Open() error: %v", err)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Open(missing) should fail")
	}
}

func TestExportImage(t *testing.T) {
	p := load(t, sample)
	dir := t.TempDir()
	views, _ := p.Views(context.Background())

	var path string
	err := host.WithTransaction(context.Background(), p, "Export Image", func(ctx context.Context) error {
		var err error
		path, err = p.ExportImage(ctx, host.ImageExportOptions{
			FilePath:  filepath.Join(dir, "Level 1"),
			View:      views[0],
			FileType:  host.ImagePNG,
			PixelSize: 256,
		})
		return err
	})
	if err != nil {
		t.Fatalf("export error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 181 {
		t.Errorf("image size = %v, want 256x181", img.Bounds())
	}
	if !reflect.DeepEqual(p.Journal(), []string{"commit:Export Image"}) {
		t.Errorf("Journal() = %v", p.Journal())
	}
}

func TestRollbackRemovesWrittenFiles(t *testing.T) {
	p := load(t, sample)
	dir := t.TempDir()
	boom := errors.New("late failure")

	err := host.WithTransaction(context.Background(), p, "Export IFC", func(ctx context.Context) error {
		if _, err := p.ExportModel(ctx, dir, "tower.ifc", host.ModelExportOptions{}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tower.ifc")); !os.IsNotExist(err) {
		t.Errorf("rolled back file still exists (stat err %v)", err)
	}
	if !reflect.DeepEqual(p.Journal(), []string{"rollback:Export IFC"}) {
		t.Errorf("Journal() = %v", p.Journal())
	}
}

func TestTransactionsDoNotNest(t *testing.T) {
	p := load(t, sample)
	ctx := context.Background()

	tx, err := p.Begin(ctx, "outer")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Begin(ctx, "inner"); !errors.Is(err, ErrTxOpen) {
		t.Errorf("nested Begin() error = %v, want ErrTxOpen", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err == nil {
		t.Error("second Commit() should fail")
	}
	if _, err := p.Begin(ctx, "next"); err != nil {
		t.Errorf("Begin() after commit error = %v", err)
	}
}

func TestExportModel(t *testing.T) {
	p := load(t, sample)
	dir := t.TempDir()

	path, err := p.ExportModel(context.Background(), dir, "tower.ifc", host.ModelExportOptions{Version: host.IFC4, ExportBaseQuantities: true})
	if err != nil {
		t.Fatalf("ExportModel() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{
		"ISO-10303-21;",
		"FILE_SCHEMA(('IFC4'));",
		"QuantityTakeOffAddOnView",
		"'2024-05-01T09:30:00'",
		"#1=IFCPROJECT(",
		"'Tower'",
		"#2=IFCBUILDINGELEMENTPROXY(",
		"'Basic Wall',$,'Walls'",
		"'Door ''D1''',$,'Doors'",
		"END-ISO-10303-21;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("IFC output missing %q", want)
		}
	}
	if strings.Contains(out, "'Plan'") || strings.Contains(out, "'Level 1'") {
		t.Error("sheets and views must not be exported as building elements")
	}

	again, _ := p.ExportModel(context.Background(), dir, "again.ifc", host.ModelExportOptions{Version: host.IFC4, ExportBaseQuantities: true})
	data2, _ := os.ReadFile(again)
	if strings.Replace(string(data2), "again.ifc", "tower.ifc", 1) != out {
		t.Error("re-export should produce identical GlobalIds")
	}
}

func TestCompressGUID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"00000000-0000-0000-0000-000000000000", "0000000000000000000000"},
		{"ffffffff-ffff-ffff-ffff-ffffffffffff", "3$$$$$$$$$$$$$$$$$$$$$"},
	}
	for _, tt := range tests {
		got := CompressGUID(uuid.MustParse(tt.in))
		if got != tt.want {
			t.Errorf("CompressGUID(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		g := CompressGUID(uuid.New())
		if len(g) != 22 || strings.Trim(g, ifcChars) != "" {
			t.Fatalf("invalid GlobalId %q", g)
		}
		if seen[g] {
			t.Fatalf("duplicate GlobalId %q", g)
		}
		seen[g] = true
	}
}

func TestStepString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Tower", "'Tower'"},
		{"it's", "'it''s'"},
		{`a\b`, `'a\\b'`},
		{"А4К", `'\X2\0410\X0\4\X2\041A\X0\'`},
	}
	for _, tt := range tests {
		if got := stepString(tt.in); got != tt.want {
			t.Errorf("stepString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
