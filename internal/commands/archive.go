package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	goption "google.golang.org/api/option"

	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/sheets"
	gsheet "tally/internal/sheets/google"
)

var errSheetsDisabled = errors.New("no archive spreadsheet configured (set GOOGLE_SPREADSHEET_ID)")

func newArchiveCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "List expenses archived to Google Sheets by export --reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := openArchive(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			return printArchive(cmd.Context(), cmd.OutOrStdout(), reader)
		},
	}
}

func openArchive(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...goption.ClientOption) (sheets.ArchiveReader, error) {
	if !cfg.SheetsEnabled() {
		return nil, errSheetsDisabled
	}
	client, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	}, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening archive spreadsheet: %w", err)
	}
	return client, nil
}

func printArchive(ctx context.Context, out io.Writer, reader sheets.ArchiveReader) error {
	expenses, err := reader.ReadArchive(ctx)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	if len(expenses) == 0 {
		fmt.Fprintln(out, "Archive is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCATEGORY\tSUBJECT\tDESCRIPTION\tAMOUNT")
	for _, exp := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			exp.Date, exp.Category, exp.Subject, exp.Description, core.FormatAmount(exp.Amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d archived, total %s\n", len(expenses), core.FormatAmount(core.AccountState{Expenses: expenses}.TotalExpenses()))
	return nil
}
