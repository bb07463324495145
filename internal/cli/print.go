package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore"
)

// printCommand creates the batch print command.
func (c *CLI) printCommand() *cobra.Command {
	var driver, spoolDir string

	cmd := &cobra.Command{
		Use:   "print <project.toml>",
		Short: "Print every sheet group with its mapped paper format",
		Long: `Print groups the sheets of a project by the name of their first title block
and submits one print job per group, in the order the groups first appear.

The paper format of each group comes from the policy table. If a group's
label has no entry, or the driver does not offer the mapped paper size, the
batch stops at that group with "format not found". Groups printed before it
stay printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if driver != "" {
				cfg.Print.Driver = driver
			}
			if spoolDir != "" {
				cfg.Print.SpoolDir = spoolDir
			}
			opts, err := pipelineOptions(cfg, logger)
			if err != nil {
				return err
			}

			doc, err := openProject(args[0])
			if err != nil {
				return err
			}
			runner, store, err := c.newRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			prog := newProgress(logger)
			out, err := runner.Print(ctx, doc, opts)
			if err != nil {
				return err
			}

			for _, g := range out.Groups {
				printDetail(c.out, "%s: %d sheet(s) on %s as %s", g.Label, g.Sheets, g.Policy, g.ViewSet)
				for _, f := range g.Job.Files {
					printFile(c.out, f)
				}
			}
			if !out.OK() {
				if out.ViewSet != "" {
					printWarning(c.out, "%s saved but not printed", out.ViewSet)
				}
				return errors.New(errors.ErrCodeFormatNotFound, "%s", out.Message())
			}

			prog.done("Printed "+doc.Title(), "groups", len(out.Groups), "skipped", len(out.Skipped))
			printSuccess(c.out, "%s", capitalize(out.Message()))
			if n := len(out.Skipped); n > 0 {
				printDetail(c.out, "%d sheet(s) without title block skipped", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "print driver (overrides print.driver)")
	cmd.Flags().StringVar(&spoolDir, "spool-dir", "", "directory for printed files (overrides print.spool_dir)")
	cmd.ValidArgsFunction = completeProject
	_ = cmd.RegisterFlagCompletionFunc("driver", completeDrivers)
	_ = cmd.MarkFlagDirname("spool-dir")
	return cmd
}

// groupsCommand creates the dry-run command.
func (c *CLI) groupsCommand() *cobra.Command {
	var driver string

	cmd := &cobra.Command{
		Use:   "groups <project.toml>",
		Short: "Show sheet groups and their paper formats without printing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if driver != "" {
				cfg.Print.Driver = driver
			}
			opts, err := pipelineOptions(cfg, logger)
			if err != nil {
				return err
			}

			doc, err := openProject(args[0])
			if err != nil {
				return err
			}
			// Plan never persists, so the memory store is enough.
			cfg.Store.Backend = viewstore.BackendMemory
			runner, store, err := c.newRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			plan, err := runner.Plan(ctx, doc, opts)
			if err != nil {
				return err
			}

			for _, g := range plan.Groups {
				if g.Resolved {
					printKeyValue(c.out, g.Label, fmt.Sprintf("%d sheet(s)  %s", len(g.Sheets), g.Policy))
				} else {
					printKeyValue(c.out, g.Label, fmt.Sprintf("%d sheet(s)", len(g.Sheets)))
					printWarning(c.out, "%s", g.Reason)
				}
				for _, s := range g.Sheets {
					printDetail(c.out, "%s", s)
				}
			}
			if n := len(plan.Skipped); n > 0 {
				printDetail(c.out, "%d sheet(s) without title block", n)
			}

			if g, ok := plan.FirstUnresolved(); ok {
				return errors.New(errors.ErrCodeFormatNotFound, "format not found: %q (%s)", g.Label, g.Reason)
			}
			printSuccess(c.out, "%d group(s) ready for %s", len(plan.Groups), plan.Driver)
			printNextStep(c.out, "Print them with", appName+" print "+args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "print driver (overrides print.driver)")
	cmd.ValidArgsFunction = completeProject
	_ = cmd.RegisterFlagCompletionFunc("driver", completeDrivers)
	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
