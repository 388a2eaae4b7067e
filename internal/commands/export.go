package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tally/internal/export"
)

func newExportCommand(e *env) *cobra.Command {
	var (
		outDir string
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write expenses.csv, optionally resetting the account afterwards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			path := filepath.Join(outDir, export.Filename)

			open := openSession
			if reset {
				open = openWriteSession
			}
			sess, err := open(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			// Written beside the target and renamed, so a failed export
			// never leaves a truncated file behind.
			f, err := os.CreateTemp(outDir, "."+export.Filename+"-*.tmp")
			if err != nil {
				return fmt.Errorf("creating temp file in %s: %w", outDir, err)
			}
			tmp := f.Name()

			run := sess.account.Export
			if reset {
				run = sess.account.ExportAndReset
			}
			n, err := run(cmd.Context(), f)
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("closing %s: %w", tmp, cerr)
			}
			if err != nil {
				_ = os.Remove(tmp)
				return err
			}
			if err := os.Rename(tmp, path); err != nil {
				if reset {
					// The account is already reset; the temp file is the only copy.
					return fmt.Errorf("moving export to %s (kept at %s): %w", path, tmp, err)
				}
				_ = os.Remove(tmp)
				return fmt.Errorf("moving export to %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d expenses to %s\n", n, path)
			if reset {
				fmt.Fprintln(cmd.OutOrStdout(), "Account reset")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write "+export.Filename+" into")
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the account to zero after exporting")

	return cmd
}
