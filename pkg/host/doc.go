// Package host defines the boundary between sheetbatch and the authoring tool
// that owns the project model.
//
// Nothing in this package is implemented against a real CAD/BIM application.
// The interfaces describe the capabilities the batch components consume:
//
//   - [Document]: enumerate sheets, views and elements, resolve elements by id
//   - [Transactor]: open a named, scoped transaction around a mutation
//   - [Exporter]: opaque image and interchange-format exports
//   - [PrintSubsystem]: driver selection, paper catalog and job submission
//
// Two implementations ship with the module: [project] loads a project model
// from a TOML file and exports to disk, [spool] is a print subsystem that
// writes submitted jobs as PDF files. Tests use the fakes in [hosttest].
//
// # Transactions
//
// [WithTransaction] is the only supported way to run a mutation. It commits
// when fn returns nil and rolls back on error or panic, so a transaction is
// always released before WithTransaction returns:
//
//	err := host.WithTransaction(ctx, doc, "Export Image", func(ctx context.Context) error {
//	    _, err := exporter.ExportImage(ctx, opts)
//	    return err
//	})
//
// [project]: github.com/matzehuels/sheetbatch/pkg/host/project
// [spool]: github.com/matzehuels/sheetbatch/pkg/host/spool
// [hosttest]: github.com/matzehuels/sheetbatch/pkg/host/hosttest
package host
