package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/sheetbatch/pkg/buildinfo"
	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host/spool"
	"github.com/matzehuels/sheetbatch/pkg/observability"
)

const projectFile = `
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

type env struct {
	dir     string
	project string
	config  string
	spool   string
	out     string
}

// newEnv writes a project and a config whose paths all point into a temp dir.
func newEnv(t *testing.T, extraConfig string) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Cleanup(observability.Reset)

	e := &env{
		dir:     dir,
		project: filepath.Join(dir, "tower.toml"),
		config:  filepath.Join(dir, "sheetbatch.toml"),
		spool:   filepath.Join(dir, "spool"),
		out:     filepath.Join(dir, "out"),
	}
	if err := os.WriteFile(e.project, []byte(projectFile), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := `
[print]
spool_dir = "` + e.spool + `"

[export]
output_dir = "` + e.out + `"

[store]
backend = "file"
path = "` + filepath.Join(dir, "viewsets") + `"
` + extraConfig
	if err := os.WriteFile(e.config, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--config", e.config)
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestPrintCommand(t *testing.T) {
	e := newEnv(t, "")

	out, err := e.run(t, "print", e.project)
	if err != nil {
		t.Fatalf("print error: %v", err)
	}
	if !strings.Contains(out, "Printed 2 group(s)") {
		t.Errorf("output missing status line:\n%s", out)
	}
	if !strings.Contains(out, "1 sheet(s) without title block skipped") {
		t.Errorf("output missing skipped sheets:\n%s", out)
	}

	pdfs, _ := filepath.Glob(filepath.Join(e.spool, "*.pdf"))
	if len(pdfs) != 2 {
		t.Errorf("spooled %d PDFs, want 2", len(pdfs))
	}

	out, err = e.run(t, "viewsets", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "А4К_") || !strings.Contains(out, "А3А_") {
		t.Errorf("viewsets list missing sets:\n%s", out)
	}
	if !strings.Contains(out, "2 view set(s)") {
		t.Errorf("viewsets list count:\n%s", out)
	}

	out, err = e.run(t, "viewsets", "prune", "А4К")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Pruned 1 view set(s)") {
		t.Errorf("prune output:\n%s", out)
	}

	out, err = e.run(t, "viewsets", "list", "--label", "А4К")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No view sets") {
		t.Errorf("list after prune:\n%s", out)
	}
}

func TestPrintCommandAborts(t *testing.T) {
	e := newEnv(t, `
[[policy]]
label = "А4К"
paper = "A4"
orientation = "portrait"
`)

	out, err := e.run(t, "print", e.project)
	if !errors.Is(err, errors.ErrCodeFormatNotFound) {
		t.Fatalf("error = %v, want FORMAT_NOT_FOUND", err)
	}
	if !strings.Contains(err.Error(), "А3А") {
		t.Errorf("error should name the label: %v", err)
	}
	if strings.Contains(out, "Printed") {
		t.Errorf("aborted run printed a success line:\n%s", out)
	}
	if !strings.Contains(out, "saved but not printed") {
		t.Errorf("aborted run should name the unprinted set:\n%s", out)
	}

	pdfs, _ := filepath.Glob(filepath.Join(e.spool, "*.pdf"))
	if len(pdfs) != 1 {
		t.Errorf("spooled %d PDFs, want the one group before the abort", len(pdfs))
	}

	// The aborting group's set is saved before its lookup fails.
	out, err = e.run(t, "viewsets", "list", "--label", "А3А")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "А3А_") || !strings.Contains(out, "1 view set(s)") {
		t.Errorf("aborted group's view set not listed:\n%s", out)
	}
}

func TestPrintCommandUnknownDriver(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run(t, "print", e.project, "--driver", "Nope")
	if !errors.Is(err, errors.ErrCodeDriverNotFound) {
		t.Errorf("error = %v, want DRIVER_NOT_FOUND", err)
	}
}

func TestPrintCommandMissingProject(t *testing.T) {
	e := newEnv(t, "")
	if _, err := e.run(t, "print", filepath.Join(e.dir, "absent.toml")); err == nil {
		t.Error("print should fail for a missing project")
	}
}

func TestGroupsCommand(t *testing.T) {
	e := newEnv(t, "")

	out, err := e.run(t, "groups", e.project)
	if err != nil {
		t.Fatalf("groups error: %v", err)
	}
	for _, want := range []string{"А4К", "A4 portrait", "А3А", "A3 landscape", "A-101 - Plan", "2 group(s) ready"} {
		if !strings.Contains(out, want) {
			t.Errorf("groups output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "A-000 - Cover") {
		t.Errorf("skipped sheet listed in a group:\n%s", out)
	}

	pdfs, _ := filepath.Glob(filepath.Join(e.spool, "*.pdf"))
	if len(pdfs) != 0 {
		t.Errorf("groups spooled %d files", len(pdfs))
	}
	if _, err := os.Stat(filepath.Join(e.dir, "viewsets")); !os.IsNotExist(err) {
		t.Error("groups should not open the configured store")
	}
}

func TestGroupsCommandUnresolved(t *testing.T) {
	e := newEnv(t, `
[[policy]]
label = "А4К"
paper = "A4"
orientation = "portrait"
`)
	out, err := e.run(t, "groups", e.project)
	if !errors.Is(err, errors.ErrCodeFormatNotFound) {
		t.Fatalf("error = %v, want FORMAT_NOT_FOUND", err)
	}
	if !strings.Contains(out, "no policy entry for label") {
		t.Errorf("groups output missing reason:\n%s", out)
	}
}

func TestExportImageCommand(t *testing.T) {
	e := newEnv(t, "")
	out, err := e.run(t, "export", "image", e.project, "--format", "jpeg", "--pixel-size", "320")
	if err != nil {
		t.Fatalf("export image error: %v", err)
	}
	path := filepath.Join(e.out, "Level 1.jpg")
	if !strings.Contains(out, path) {
		t.Errorf("output missing path %s:\n%s", path, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("image not written: %v", err)
	}
}

func TestExportImageCommandErrors(t *testing.T) {
	e := newEnv(t, "")

	_, err := e.run(t, "export", "image", e.project, "--view-type", "Section")
	if !errors.Is(err, errors.ErrCodeViewNotFound) {
		t.Errorf("error = %v, want VIEW_NOT_FOUND", err)
	}
	_, err = e.run(t, "export", "image", e.project, "--view-type", "Hologram")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
	_, err = e.run(t, "export", "image", e.project, "--format", "gif")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestExportIFCCommand(t *testing.T) {
	e := newEnv(t, "")
	dir := filepath.Join(e.dir, "ifc")

	out, err := e.run(t, "export", "ifc", e.project, "-o", dir, "--ifc-version", "ifc4")
	if err != nil {
		t.Fatalf("export ifc error: %v", err)
	}
	path := filepath.Join(dir, "Tower.ifc")
	if !strings.Contains(out, path) {
		t.Errorf("output missing path:\n%s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "FILE_SCHEMA(('IFC4'))") {
		t.Error("model does not declare IFC4")
	}
}

func TestViewsetsDeleteNotFound(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run(t, "viewsets", "delete", "nope_1")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestPolicyCommand(t *testing.T) {
	e := newEnv(t, "")
	out, err := e.run(t, "policy")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"built-in", "А4К", "A4 portrait", "А3А", "A3 landscape"} {
		if !strings.Contains(out, want) {
			t.Errorf("policy output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	e := newEnv(t, "")

	out, err := e.run(t, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != e.config {
		t.Errorf("config path = %q, want %q", out, e.config)
	}

	out, err = e.run(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[print]", `range = "select"`, "pixel_size = 1024", `backend = "file"`} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t, "[bogus]\nkey = 1\n")
	_, err := e.run(t, "policy")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestVersionFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := Execute(context.Background(), []string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), buildinfo.Version) {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	ReportError(&buf, errors.New(errors.ErrCodeFormatNotFound, "format not found: %q", "X"))
	if !strings.Contains(buf.String(), `FORMAT_NOT_FOUND: format not found: "X"`) {
		t.Errorf("ReportError() = %q", buf.String())
	}
}

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "__start_sheetbatch"},
		{"zsh", "#compdef sheetbatch"},
		{"fish", "complete -c sheetbatch"},
		{"powershell", "Register-ArgumentCompleter"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := Execute(context.Background(), []string{"completion", tt.shell}, &stdout, &stderr); err != nil {
				t.Fatalf("completion %s error: %v", tt.shell, err)
			}
			if !strings.Contains(stdout.String(), tt.want) {
				t.Errorf("completion %s output missing %q", tt.shell, tt.want)
			}
		})
	}

	var stdout, stderr bytes.Buffer
	if err := Execute(context.Background(), []string{"completion", "tcsh"}, &stdout, &stderr); err == nil {
		t.Error("completion tcsh should fail")
	}
}

// complete runs cobra's hidden completion command and returns the candidates.
func (e *env) complete(t *testing.T, args ...string) []string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	last := len(args) - 1
	full := append([]string{"__complete"}, args[:last]...)
	full = append(full, "--config", e.config, args[last])
	if err := Execute(context.Background(), full, &stdout, &stderr); err != nil {
		t.Fatalf("__complete %v error: %v", args, err)
	}
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if line != "" && !strings.HasPrefix(line, ":") {
			out = append(out, line)
		}
	}
	return out
}

func TestCompleteStoredViewSets(t *testing.T) {
	e := newEnv(t, "")
	if _, err := e.run(t, "print", e.project); err != nil {
		t.Fatal(err)
	}

	names := e.complete(t, "viewsets", "delete", "")
	if len(names) != 2 {
		t.Fatalf("view set candidates = %v, want 2", names)
	}
	if got := e.complete(t, "viewsets", "delete", names[0], ""); len(got) != 1 || got[0] != names[1] {
		t.Errorf("candidates after %s = %v, want [%s]", names[0], got, names[1])
	}
	if got := e.complete(t, "viewsets", "delete", "А3"); len(got) != 1 || !strings.HasPrefix(got[0], "А3А_") {
		t.Errorf("prefix candidates = %v", got)
	}

	labels := e.complete(t, "viewsets", "prune", "")
	slices.Sort(labels)
	if !slices.Equal(labels, []string{"А3А", "А4К"}) {
		t.Errorf("label candidates = %v, want [А3А А4К]", labels)
	}
}

func TestCompleteFlagValues(t *testing.T) {
	e := newEnv(t, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"driver", []string{"print", e.project, "--driver", "PDF"}, spool.DefaultDrivers()[0].Name},
		{"view type", []string{"export", "image", e.project, "--view-type", "flo"}, "FloorPlan"},
		{"image format", []string{"export", "image", e.project, "--format", "ti"}, "tiff"},
		{"ifc version", []string{"export", "ifc", e.project, "--ifc-version", "ifc4"}, "IFC4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.complete(t, tt.args...)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("candidates = %v, want [%s]", got, tt.want)
			}
		})
	}
}
