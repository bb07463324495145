package cli

import (
	"context"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/host/spool"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for sheetbatch and write it to stdout.

Besides commands and flags, the scripts complete print driver names, export
formats, and the names and labels of stored view sets:

  $ source <(sheetbatch completion bash)
  $ sheetbatch completion zsh > "${fpath[1]}/_sheetbatch"
  $ sheetbatch completion fish > ~/.config/fish/completions/sheetbatch.fish
  PS> sheetbatch completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
		},
	}
}

type completeFunc func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective)

// completeValues completes from a fixed list, case-insensitively.
func completeValues(values ...string) completeFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return filterPrefix(values, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

// completeDrivers completes the drivers the spooler knows.
func completeDrivers(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, d := range spool.DefaultDrivers() {
		names = append(names, d.Name)
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeViewSets completes the names of stored view sets, leaving out names
// already on the command line.
func (c *CLI) completeViewSets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	err := c.eachStoredSet(cmd, func(name, _ string) {
		if !slices.Contains(args, name) {
			names = append(names, name)
		}
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeLabels completes the distinct labels of stored view sets.
func (c *CLI) completeLabels(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var labels []string
	err := c.eachStoredSet(cmd, func(_, label string) {
		if !slices.Contains(labels, label) {
			labels = append(labels, label)
		}
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return filterPrefix(labels, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *CLI) eachStoredSet(cmd *cobra.Command, fn func(name, label string)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
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
		return err
	}
	for _, r := range recs {
		fn(r.Name, r.Label)
	}
	return nil
}

// completeProject completes project files for the first argument.
func completeProject(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"toml"}, cobra.ShellCompDirectiveFilterFileExt
}

func filterPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(prefix)) {
			out = append(out, v)
		}
	}
	return out
}

var (
	viewTypeNames = []string{
		string(host.ViewFloorPlan), string(host.ViewCeilingPlan), string(host.ViewSection),
		string(host.ViewElevation), string(host.ViewThreeD), string(host.ViewDrafting), string(host.ViewSheet),
	}
	imageFormatNames = []string{"png", "jpeg", "bmp", "tiff"}
	ifcVersionNames  = []string{string(host.IFC2x3), string(host.IFC4)}
)
