// Package pipeline runs the sheetbatch operations against a loaded project.
//
// It ties the core components together the same way for every entry point:
// the dispatcher for batch printing, the grouper and policy table for dry
// runs, and the two exporters.
//
// # Usage
//
//	runner := pipeline.NewRunner(store, spooler, logger)
//	opts := pipeline.Options{Policies: table, Print: printing.DefaultConfig()}
//	out, err := runner.Print(ctx, project, opts)
//	if err != nil {
//	    return err
//	}
//	if !out.OK() {
//	    fmt.Println(out.Message())
//	}
//
// Preview the groups of a batch without persisting or submitting anything:
//
//	plan, err := runner.Plan(ctx, project, opts)
//
// Export a view or the model:
//
//	path, err := runner.ExportImage(ctx, project, opts)
//	path, err := runner.ExportModel(ctx, project, opts)
package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetbatch/pkg/core/export"
	"github.com/matzehuels/sheetbatch/pkg/core/policy"
	"github.com/matzehuels/sheetbatch/pkg/core/printing"
	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
)

// Project is a host document that also runs transactions and exports.
// project.Project is the production implementation.
type Project interface {
	host.Document
	host.Transactor
	host.Exporter
}

// =============================================================================
// Options
// =============================================================================

// Options contains the configuration of every pipeline operation.
// Each operation reads only its own part.
type Options struct {
	// Policies maps title-block labels to paper formats. Nil means the
	// built-in table.
	Policies *policy.Table
	Print    printing.Config
	Image    export.ImageConfig
	Model    export.ModelConfig

	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults fills zero fields of the print configuration and
// rejects ranges other than select before anything is persisted.
// Export settings are validated by the operations that use them, since the
// model filename depends on the document.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Policies == nil {
		o.Policies = policy.Default()
	}
	def := printing.DefaultConfig()
	if o.Print.Driver == "" {
		o.Print.Driver = def.Driver
	}
	if o.Policies.Len() == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "policy table is empty")
	}
	if o.Print.Range != host.RangeSelect {
		return errors.New(errors.ErrCodeInvalidConfig, "print range %s is not supported, batches print their view set", o.Print.Range)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Plan
// =============================================================================

// GroupPlan is the dry-run result for one group.
type GroupPlan struct {
	Label  string
	Sheets []host.Sheet
	Policy policy.Policy
	// Resolved is false when the batch would abort at this group.
	Resolved bool
	// Reason explains an unresolved group.
	Reason string
}

// Plan is what Print would do with a document.
type Plan struct {
	Driver  string
	Groups  []GroupPlan
	Skipped []host.Sheet
}

// OK reports whether every group resolves.
func (p *Plan) OK() bool {
	for _, g := range p.Groups {
		if !g.Resolved {
			return false
		}
	}
	return true
}

// FirstUnresolved returns the group at which Print would abort.
func (p *Plan) FirstUnresolved() (GroupPlan, bool) {
	for _, g := range p.Groups {
		if !g.Resolved {
			return g, true
		}
	}
	return GroupPlan{}, false
}
