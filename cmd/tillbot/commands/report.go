package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the statement of the open till",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer a.close()

			snap := a.ledger.Snapshot(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), a.reports.Report(snap))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the statement of the open till as CSV or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer a.close()

			if format == "" {
				format = cfg.Export.Format
			}
			file, err := a.reports.Export(a.ledger.Snapshot(cmd.Context()), format)
			if err != nil {
				return err
			}
			if out == "" {
				out = file.Filename
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(file.Body)
				return err
			}
			if err := os.WriteFile(out, file.Body, 0o640); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Statement written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or pdf (default export.format)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default till-<timestamp>.<format>)")
	return cmd
}
