package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tally/internal/core"
)

func newAddCommand(e *env) *cobra.Command {
	var subject, description, category, date, amount string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Example: `  tally add --subject Lunch --amount 12.50
  tally add --subject Fuel --category Gas --date 2024-03-01 --amount 40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := buildExpense(subject, description, category, date, amount, time.Now())
			if err != nil {
				return err
			}

			sess, err := openWriteSession(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			state, err := sess.account.AddExpense(cmd.Context(), exp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s %s (%s), remaining %s\n",
				len(state.Expenses)-1, exp.Subject, core.FormatAmount(exp.Amount), exp.Category,
				core.FormatAmount(state.RemainingBalance()))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "what the money went on (required)")
	_ = cmd.MarkFlagRequired("subject")
	cmd.Flags().StringVar(&amount, "amount", "", "amount spent (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&description, "description", "", "optional note")
	cmd.Flags().StringVar(&category, "category", core.DefaultCategory.String(), "Food, Transportation, Gas or Shopping")
	cmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD (default today)")

	return cmd
}

func buildExpense(subject, description, category, date, amount string, now time.Time) (core.Expense, error) {
	amt, err := core.ParseAmount(amount)
	if err != nil {
		return core.Expense{}, err
	}
	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.Expense{}, err
	}
	d := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if date != "" {
		if d, err = core.ParseDate(date); err != nil {
			return core.Expense{}, err
		}
	}
	exp := core.Expense{Subject: subject, Description: description, Category: cat, Date: d, Amount: amt}
	return exp, exp.Validate()
}

func newListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List expenses with their index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			state, err := sess.account.State(cmd.Context())
			if err != nil {
				return err
			}
			printExpenses(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func printExpenses(out io.Writer, state core.AccountState) {
	if len(state.Expenses) == 0 {
		fmt.Fprintln(out, "No expenses.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tDATE\tCATEGORY\tSUBJECT\tDESCRIPTION\tAMOUNT")
		for i, exp := range state.Expenses {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				i, exp.Date, exp.Category, exp.Subject, exp.Description, core.FormatAmount(exp.Amount))
		}
		_ = tw.Flush()
	}
	fmt.Fprintf(out, "Remaining %s of %s\n", core.FormatAmount(state.RemainingBalance()), core.FormatAmount(state.Balance))
}

func newDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete the expense at index (see list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil || index < 0 {
				return fmt.Errorf("%w: %q", core.ErrIndexOutOfRange, args[0])
			}

			sess, err := openWriteSession(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			state, err := sess.account.DeleteExpense(cmd.Context(), index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d, remaining %s\n", index, core.FormatAmount(state.RemainingBalance()))
			return nil
		},
	}
}
