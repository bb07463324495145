// Package printing drives batch printing of sheets grouped by title block.
//
// A [Dispatcher] run selects the print driver, groups the document's sheets,
// and then handles one group at a time: build a view set, resolve its paper
// format, persist the set, configure the print settings and submit. Groups
// never overlap; the next group starts only after the previous submission
// returned.
//
// # Failure policy
//
// A group whose label has no policy entry, or whose paper size is not offered
// by the selected driver, aborts the whole run. Groups already submitted stay
// submitted and their view sets stay persisted. The abort is reported in the
// [Outcome], not as an error; errors are reserved for host faults.
package printing

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetbatch/pkg/core/policy"
	"github.com/matzehuels/sheetbatch/pkg/core/sheet"
	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/observability"
)

// DefaultDriver is the printer driver the title-block templates were made for.
const DefaultDriver = "PDF-XChange 5.0 for ABBYY FineReader 14"

// Config holds the run-independent print options.
type Config struct {
	Driver string
	Range  host.PrintRange
}

// DefaultConfig returns the configuration of the original batch command.
func DefaultConfig() Config {
	return Config{Driver: DefaultDriver, Range: host.RangeSelect}
}

// Dispatcher runs batch print jobs.
type Dispatcher struct {
	printer  host.PrintSubsystem
	policies *policy.Table
	builder  *viewset.Builder
	config   Config
	logger   *log.Logger

	state State
}

// NewDispatcher wires a dispatcher. A nil logger discards output.
func NewDispatcher(printer host.PrintSubsystem, policies *policy.Table, builder *viewset.Builder, cfg Config, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Dispatcher{
		printer:  printer,
		policies: policies,
		builder:  builder,
		config:   cfg,
		logger:   logger,
	}
}

// State returns the state reached by the last Run.
func (d *Dispatcher) State() State { return d.state }

func (d *Dispatcher) enter(s State, kv ...any) {
	d.state = s
	d.logger.Debug("batch state", append([]any{"state", s.String()}, kv...)...)
}

// Run prints every title-block group of doc. It returns an error only for
// host faults (store, driver, submission), in which case the returned Outcome
// still lists the groups completed before the fault.
func (d *Dispatcher) Run(ctx context.Context, doc host.Document) (out *Outcome, err error) {
	start := time.Now()
	out = &Outcome{Status: StatusSuccess}
	defer func() {
		observability.Batch().OnBatchComplete(ctx, out.Status.String(), len(out.Groups), time.Since(start), err)
	}()

	d.enter(StateIdle)
	if err := d.printer.SelectDriver(ctx, d.config.Driver); err != nil {
		return out, fmt.Errorf("select driver %q: %w", d.config.Driver, err)
	}
	papers, err := d.printer.PaperSizes(ctx)
	if err != nil {
		return out, fmt.Errorf("paper sizes of %q: %w", d.config.Driver, err)
	}

	d.enter(StateGrouping)
	sheets, err := doc.Sheets(ctx)
	if err != nil {
		return out, fmt.Errorf("enumerate sheets: %w", err)
	}
	observability.Batch().OnBatchStart(ctx, len(sheets))

	groups, err := sheet.NewGrouper(doc, d.logger).Group(ctx, sheets)
	if err != nil {
		return out, fmt.Errorf("group sheets: %w", err)
	}
	out.Skipped = groups.Skipped()
	if n := len(out.Skipped); n > 0 {
		d.logger.Info("skipping sheets without title block", "count", n)
	}

	// The single print configuration of this run; every group overwrites it.
	settings := host.PrintSettings{
		Driver: d.config.Driver,
		Range:  d.config.Range,
	}

	for _, grp := range groups.All() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, aborted, err := d.runGroup(ctx, grp, papers, &settings)
		if err != nil {
			return out, err
		}
		if aborted != "" {
			out.Status = StatusAborted
			out.Reason = ReasonFormatNotFound
			out.Label = grp.Label
			out.Detail = aborted
			out.ViewSet = res.ViewSet
			d.enter(StateAborted, "label", grp.Label)
			d.logger.Warn("batch aborted",
				"label", grp.Label,
				"reason", aborted,
				"viewset", res.ViewSet,
				"completed", len(out.Groups))
			return out, nil
		}
		out.Groups = append(out.Groups, res)
	}

	d.enter(StateDone)
	return out, nil
}

// runGroup handles one group. A non-empty abort string means the group's
// format could not be resolved; its view set is already persisted and the
// returned result carries only its label and name.
func (d *Dispatcher) runGroup(ctx context.Context, grp sheet.Group, papers []host.PaperSize, settings *host.PrintSettings) (GroupResult, string, error) {
	start := time.Now()
	observability.Batch().OnGroupStart(ctx, grp.Label, len(grp.Sheets))

	d.enter(StateBuildingSet, "label", grp.Label, "sheets", len(grp.Sheets))
	vs := d.builder.Build(grp.Sheets)
	name, err := d.builder.Persist(ctx, vs, grp.Label)
	if err != nil {
		return GroupResult{}, "", err
	}
	vs.Name = name
	settings.ViewSet = vs

	d.enter(StateResolvingPolicy, "label", grp.Label)
	pending := GroupResult{Label: grp.Label, ViewSet: name, Sheets: vs.Size()}
	pol, ok := d.policies.Resolve(grp.Label)
	if !ok {
		return pending, "no policy entry for label", nil
	}
	paper, ok := findPaper(papers, pol.PaperSize)
	if !ok {
		return pending, fmt.Sprintf("paper size %s not offered by driver", pol.PaperSize), nil
	}

	d.enter(StateConfiguring, "paper", paper.Name, "orientation", pol.Orientation.String())
	settings.PaperSize = paper
	settings.Orientation = pol.Orientation
	settings.CombinedFile = true

	d.enter(StateSubmitting, "viewset", name)
	job, err := d.printer.Submit(ctx, *settings)
	if err != nil {
		return GroupResult{}, "", fmt.Errorf("submit %s: %w", name, err)
	}
	observability.Batch().OnJobSubmitted(ctx, grp.Label, job.ID, time.Since(start))
	d.logger.Info("submitted print job",
		"label", grp.Label,
		"viewset", name,
		"sheets", vs.Size(),
		"paper", pol.String(),
		"job", job.ID)

	return GroupResult{
		Label:   grp.Label,
		ViewSet: name,
		Sheets:  vs.Size(),
		Policy:  pol,
		Job:     job,
	}, "", nil
}

// findPaper looks a paper size up by exact name.
func findPaper(papers []host.PaperSize, name string) (host.PaperSize, bool) {
	for _, p := range papers {
		if p.Name == name {
			return p, true
		}
	}
	return host.PaperSize{}, false
}
