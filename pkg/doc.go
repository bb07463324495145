// Package pkg provides the core libraries for sheetbatch.
//
// # Overview
//
// Sheetbatch prints the sheets of a building project in batches. Sheets are
// grouped by the name of their first title block, each group becomes a named
// view set, and every view set is printed with the paper format that a policy
// table maps to its label. The pkg directory is organized into five areas:
//
//  1. [host] - The host model: documents, sheets, views, transactions, the
//     print subsystem and the exporter, plus two implementations
//  2. [core] - Domain logic (grouping, view sets, policies, dispatch, export)
//  3. [infra] - Persistent view-set stores (file, Redis, MongoDB, PostgreSQL)
//  4. [pipeline] - Orchestration used by the CLI
//  5. [config] - The TOML configuration file
//
// # Architecture
//
// The data flow of a batch print:
//
//	Project file (TOML)
//	         ↓
//	    [core/sheet] package (group sheets by title-block label)
//	         ↓
//	    [core/viewset] package (build and persist one view set per group)
//	         ↓
//	    [core/policy] package (label → paper size and orientation)
//	         ↓
//	    [core/printing] package (configure and submit, abort on a miss)
//	         ↓
//	    [host/spool] package (PDF per job)
//
// # Quick Start
//
//	doc, _ := project.Open("tower.toml")
//	sp, _ := spool.New(dir, spool.DefaultDrivers())
//	runner := pipeline.NewRunner(viewset.NewMemoryStore(), sp, logger)
//
//	out, err := runner.Print(ctx, doc, pipeline.Options{Print: printing.DefaultConfig()})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(out.Message())
//
// # Main Packages
//
// ## Host
//
// [host] - Interfaces the core runs against. [host/project] reads a project
// from TOML and exports images and IFC; [host/spool] renders print jobs to
// PDF with gopdf; [host/hosttest] holds recording fakes for tests.
//
// ## Core Domain Logic
//
// [core/sheet] - Groups sheets by label, keeping first-encounter order.
//
// [core/viewset] - Builds view sets and persists them in a store transaction.
//
// [core/policy] - The exact-match label to paper format table.
//
// [core/printing] - The batch print dispatcher and its outcome.
//
// [core/export] - Single-view image export and whole-model IFC export.
//
// ## Infrastructure
//
// [infra/viewstore] - Store backends selected by name in the configuration.
//
// [raster] - Placeholder raster images with captions and the image encoders.
//
// [observability] - Hooks for batch, store and export events.
//
// [errors] - Coded errors and input validation.
//
// # Testing
//
// Run tests:
//
//	go test ./...                        # All tests
//	go test ./pkg/core/...               # Domain logic only
//	go test -tags integration ./pkg/infra/...  # Live Redis, MongoDB and PostgreSQL
//
// [host]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/host
// [host/project]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/host/project
// [host/spool]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/host/spool
// [host/hosttest]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/host/hosttest
// [core]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/core
// [core/sheet]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/core/sheet
// [core/viewset]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/core/viewset
// [core/policy]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/core/policy
// [core/printing]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/core/printing
// [core/export]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/core/export
// [infra]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/infra/viewstore
// [infra/viewstore]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/infra/viewstore
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/config
// [raster]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/raster
// [observability]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/sheetbatch/pkg/errors
package pkg
