// Package cli implements the sheetbatch command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetbatch/pkg/buildinfo"
	"github.com/matzehuels/sheetbatch/pkg/config"
	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/host/project"
	"github.com/matzehuels/sheetbatch/pkg/host/spool"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore"
	"github.com/matzehuels/sheetbatch/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is bound to --config.
	configPath string
	out        io.Writer
}

// New creates a new CLI instance logging to w. Status lines go to stdout.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects status lines.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Sheetbatch prints and exports the sheets of a building project",
		Long:         `Sheetbatch groups the sheets of a project by title-block family, prints every group with the paper format mapped to its family, and exports views and the model for downstream tools.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			registerLoggingHooks(c.Logger)
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	// Register all subcommands
	root.AddCommand(c.printCommand())
	root.AddCommand(c.groupsCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.viewsetsCommand())
	root.AddCommand(c.policyCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

// loadConfig reads --config or the default file.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	c.Logger.Debug("loading config", "path", path)
	return config.Load(path)
}

// openStore connects the configured view-set store.
func (c *CLI) openStore(ctx context.Context, cfg *config.Config) (viewset.Store, error) {
	opts := cfg.StoreOptions()
	c.Logger.Debug("opening view-set store", "store", opts.Describe())
	return viewstore.Open(ctx, opts)
}

// newRunner creates a pipeline runner printing through the PDF spooler.
// The caller closes the returned store.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, viewset.Store, error) {
	store, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	sp, err := spool.New(cfg.Print.SpoolDir, spool.DefaultDrivers(), spool.WithLogger(c.Logger))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return pipeline.NewRunner(store, sp, c.Logger), store, nil
}

// pipelineOptions builds the pipeline options from cfg.
func pipelineOptions(cfg *config.Config, logger *log.Logger) (pipeline.Options, error) {
	table, err := cfg.PolicyTable()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Policies: table,
		Print:    cfg.PrintConfig(),
		Image:    cfg.ImageConfig(),
		Model:    cfg.ModelConfig(),
		Logger:   logger,
	}, nil
}

// openProject loads a project file.
func openProject(path string) (*project.Project, error) {
	return project.Open(path)
}
