package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tally/internal/core"
)

func newBalanceCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <amount>",
		Short: "Add amount to the balance; use -- before a negative amount",
		Example: `  tally balance 500
  tally balance -- -50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}

			sess, err := openWriteSession(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			state, err := sess.account.AdjustBalance(cmd.Context(), amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance %s, remaining %s\n",
				core.FormatAmount(state.Balance), core.FormatAmount(state.RemainingBalance()))
			return nil
		},
	}
}

func newSummaryCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balance, spending by category and the latest expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			sum, err := sess.account.Summary(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Balance   %s\n", core.FormatAmount(sum.Balance))
			fmt.Fprintf(out, "Spent     %s\n", core.FormatAmount(sum.Total))
			fmt.Fprintf(out, "Remaining %s\n", core.FormatAmount(sum.Remaining))
			if len(sum.Shares) > 0 {
				fmt.Fprintln(out, "\nBy category:")
				for _, sh := range sum.Shares {
					fmt.Fprintf(out, "  %-15s %10s %3d%%\n", sh.Category, core.FormatAmount(sh.Amount), sh.Percent)
				}
			}
			if len(sum.Latest) > 0 {
				fmt.Fprintln(out, "\nLatest:")
				for _, exp := range sum.Latest {
					fmt.Fprintf(out, "  %s  %-20s %10s\n", exp.Date, exp.Subject, core.FormatAmount(exp.Amount))
				}
			}
			return nil
		},
	}
}
