// Package cli implements the sheetbatch command-line interface.
//
// This package provides commands for printing the sheets of a project file in
// title-block groups, previewing those groups, exporting a view or the whole
// model, and managing the persisted view sets. The CLI is built using cobra
// and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - print: Print every sheet group with its mapped paper format
//   - groups: Show the groups and their resolved formats without printing
//   - export: Export a view as an image or the model as IFC
//   - viewsets: List, delete and prune persisted view sets
//   - policy: Show the active format policy table
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/matzehuels/sheetbatch/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the logger shared by all commands. Logs go to w, status
// lines do not.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one command run.
type progress struct {
	logger *log.Logger
	start  time.Time
	now    func() time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now(), now: time.Now}
}

// done logs msg at info level with the elapsed time, rounded to the
// millisecond, followed by kv.
//
//	INFO Printed Tower elapsed=1.234s groups=2 skipped=1
func (p *progress) done(msg string, kv ...any) {
	elapsed := p.now().Sub(p.start).Round(time.Millisecond)
	p.logger.Info(msg, append([]any{"elapsed", elapsed}, kv...)...)
}

type loggerKey struct{}

// withLogger attaches l to ctx. The root command does this before any
// subcommand runs.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when a command runs outside the root command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
