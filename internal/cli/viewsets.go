package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	sberrors "github.com/matzehuels/sheetbatch/pkg/errors"
)

// viewsetsCommand creates the view-set management command.
func (c *CLI) viewsetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viewsets",
		Short: "Manage the view sets persisted by print runs",
	}

	cmd.AddCommand(c.viewsetsListCommand())
	cmd.AddCommand(c.viewsetsDeleteCommand())
	cmd.AddCommand(c.viewsetsPruneCommand())

	return cmd
}

// viewsetsListCommand creates the "viewsets list" subcommand.
func (c *CLI) viewsetsListCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted view sets, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(ctx)
			if err != nil {
				return sberrors.Wrap(sberrors.ErrCodeStore, err, "list view sets")
			}
			n := 0
			for _, r := range recs {
				if label != "" && r.Label != label {
					continue
				}
				printKeyValue(c.out, r.Label, fmt.Sprintf("%s  %d sheet(s)  %s",
					r.Name, len(r.SheetIDs), StyleDim.Render(r.CreatedAt.Local().Format(time.DateTime))))
				n++
			}
			if n == 0 {
				printInfo(c.out, "No view sets")
				return nil
			}
			printDetail(c.out, "%d view set(s) in %s", n, cfg.StoreOptions().Describe())
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "only list view sets with this label")
	_ = cmd.RegisterFlagCompletionFunc("label", c.completeLabels)
	return cmd
}

// viewsetsDeleteCommand creates the "viewsets delete" subcommand.
func (c *CLI) viewsetsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <name>...",
		Short:             "Delete view sets by name",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeViewSets,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, name := range args {
				err := store.Delete(ctx, name)
				if errors.Is(err, viewset.ErrNotFound) {
					return sberrors.Wrap(sberrors.ErrCodeNotFound, err, "view set %q", name)
				}
				if err != nil {
					return sberrors.Wrap(sberrors.ErrCodeStore, err, "delete %q", name)
				}
			}
			printSuccess(c.out, "Deleted %d view set(s)", len(args))
			return nil
		},
	}
}

// viewsetsPruneCommand creates the "viewsets prune" subcommand.
func (c *CLI) viewsetsPruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "prune <label>",
		Short:             "Delete every view set with the given label",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeLabels,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := viewset.Prune(ctx, store, args[0])
			if err != nil {
				return sberrors.Wrap(sberrors.ErrCodeStore, err, "prune %q", args[0])
			}
			if n == 0 {
				printInfo(c.out, "No view sets labeled %q", args[0])
				return nil
			}
			printSuccess(c.out, "Pruned %d view set(s) labeled %q", n, args[0])
			return nil
		},
	}
}
