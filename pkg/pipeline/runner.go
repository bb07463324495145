package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetbatch/pkg/core/export"
	"github.com/matzehuels/sheetbatch/pkg/core/printing"
	"github.com/matzehuels/sheetbatch/pkg/core/sheet"
	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Runner executes pipeline operations against one view-set store and one
// print subsystem.
//
// The Runner keeps no per-run state: every Print builds a fresh dispatcher,
// so the same Runner can serve several documents in sequence.
type Runner struct {
	Store   viewset.Store
	Printer host.PrintSubsystem
	Logger  *log.Logger

	builderOpts []viewset.Option
}

// NewRunner creates a runner. If store is nil, an in-memory store is used.
// printer may be nil for runners that only export.
func NewRunner(store viewset.Store, printer host.PrintSubsystem, logger *log.Logger, opts ...viewset.Option) *Runner {
	if store == nil {
		store = viewset.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Store:       store,
		Printer:     printer,
		Logger:      logger,
		builderOpts: opts,
	}
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (r *Runner) requirePrinter() error {
	if r.Printer == nil {
		return errors.New(errors.ErrCodeInternal, "runner has no print subsystem")
	}
	return nil
}

// Print runs the batch print of doc.
//
// An aborted batch is reported through the Outcome, not as an error; the
// error return is reserved for host and store faults.
func (r *Runner) Print(ctx context.Context, doc host.Document, opts Options) (*printing.Outcome, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := r.requirePrinter(); err != nil {
		return nil, err
	}

	start := time.Now()
	builder := viewset.NewBuilder(r.Store, opts.Logger, r.builderOpts...)
	d := printing.NewDispatcher(r.Printer, opts.Policies, builder, opts.Print, opts.Logger)
	out, err := d.Run(ctx, doc)
	if err != nil {
		return out, err
	}

	opts.Logger.Info("batch finished",
		"status", out.Status,
		"groups", len(out.Groups),
		"skipped", len(out.Skipped),
		"duration", time.Since(start))
	return out, nil
}

// Plan groups the sheets of doc and resolves every group the way Print
// would, without persisting view sets or submitting jobs.
//
// Unlike Print, Plan does not stop at the first unresolved group, so it
// reports every label that needs a policy.
func (r *Runner) Plan(ctx context.Context, doc host.Document, opts Options) (*Plan, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := r.requirePrinter(); err != nil {
		return nil, err
	}

	if err := r.Printer.SelectDriver(ctx, opts.Print.Driver); err != nil {
		return nil, fmt.Errorf("select driver %q: %w", opts.Print.Driver, err)
	}
	papers, err := r.Printer.PaperSizes(ctx)
	if err != nil {
		return nil, fmt.Errorf("paper sizes of %q: %w", opts.Print.Driver, err)
	}
	offered := make(map[string]bool, len(papers))
	for _, p := range papers {
		offered[p.Name] = true
	}

	sheets, err := doc.Sheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate sheets: %w", err)
	}
	groups, err := sheet.NewGrouper(doc, opts.Logger).Group(ctx, sheets)
	if err != nil {
		return nil, fmt.Errorf("group sheets: %w", err)
	}

	plan := &Plan{Driver: opts.Print.Driver, Skipped: groups.Skipped()}
	for _, g := range groups.All() {
		gp := GroupPlan{Label: g.Label, Sheets: g.Sheets}
		p, ok := opts.Policies.Resolve(g.Label)
		switch {
		case !ok:
			gp.Reason = "no policy entry for label"
		case !offered[p.PaperSize]:
			gp.Policy = p
			gp.Reason = fmt.Sprintf("paper size %s not offered by driver", p.PaperSize)
		default:
			gp.Policy = p
			gp.Resolved = true
		}
		plan.Groups = append(plan.Groups, gp)
	}
	return plan, nil
}

// ExportImage exports the configured view of doc as an image and returns
// the written path.
func (r *Runner) ExportImage(ctx context.Context, doc Project, opts Options) (string, error) {
	r.applyLogger(&opts)
	return export.NewImageExporter(doc, doc, doc, opts.Image, opts.Logger).Export(ctx)
}

// ExportModel exports doc to IFC and returns the written path.
func (r *Runner) ExportModel(ctx context.Context, doc Project, opts Options) (string, error) {
	r.applyLogger(&opts)
	return export.NewModelExporter(doc, doc, doc, opts.Model, opts.Logger).Export(ctx)
}
