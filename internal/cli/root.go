package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetbatch/pkg/buildinfo"
)

// SetVersion overrides the build information displayed by --version.
// Empty values keep the ldflags defaults.
//
// Parameters:
//   - v: semantic version string (e.g., "v1.2.3")
//   - c: git commit SHA (short or long form)
//   - d: build timestamp (e.g., "2025-12-20T14:32:01Z")
func SetVersion(v, c, d string) {
	if v != "" {
		buildinfo.Version = v
	}
	if c != "" {
		buildinfo.Commit = c
	}
	if d != "" {
		buildinfo.Date = d
	}
}

// Execute runs the sheetbatch CLI with args and returns an error if the
// command fails.
//
// Logging goes to stderr:
//   - Default: info level
//   - With --verbose (-v): debug level
//
// Status lines go to stdout. The logger is attached to the context and
// accessible to all commands via loggerFromContext.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var verbose bool

	c := New(stderr, LogInfo)
	c.SetOutput(stdout)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	originalPreRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)

		if originalPreRun != nil {
			return originalPreRun(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}
