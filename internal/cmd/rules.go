package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/gatekeep/pkg/ratelimit/tiered"
)

func newRulesCommand() *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Inspect tier rules",
	}

	rules.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a rules file and print the effective table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := tiered.LoadRulesFile(args[0])
			if err != nil {
				return err
			}
			return printRules(cmd, rs)
		},
	})

	rules.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRules(cmd, tiered.DefaultRules())
		},
	})

	return rules
}

func printRules(cmd *cobra.Command, rs *tiered.Rules) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tTIER\tLIMIT\tWINDOW")
	for _, e := range rs.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Service, e.Tier, e.Limit, e.Window)
	}
	fmt.Fprintf(tw, "*\t*\t%d\t%s\n", rs.Default.Limit, rs.Default.Window)
	return tw.Flush()
}
