package cli

import (
	"github.com/spf13/cobra"
)

// policyCommand creates the command that shows the format policy table.
func (c *CLI) policyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Show the title-block label to paper format table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			table, err := cfg.PolicyTable()
			if err != nil {
				return err
			}

			source := "built-in"
			if len(cfg.Policies) > 0 {
				source = "config"
			}
			printInfo(c.out, "%s (%s)", StyleTitle.Render("Format policies"), source)
			for _, e := range table.Entries() {
				printKeyValue(c.out, e.Label, e.Policy.String())
			}
			return nil
		},
	}
}
