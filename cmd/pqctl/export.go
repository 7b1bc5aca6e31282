package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"PQAnalyzer/internal/report"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags analysisFlags
	var format string
	var out string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write an XLSX or PDF report for a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			params, err := flags.params(cmd)
			if err != nil {
				return err
			}
			if err := ctx.ensureStack(true); err != nil {
				return err
			}
			b, err := ctx.runs.Export(cmd.Context(), args[0], f, params)
			if err != nil {
				return err
			}
			if out == "" {
				out = f.Filename(args[0])
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", out, len(b))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "xlsx", "Report format (xlsx or pdf)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, '-' for stdout (defaults to run-<id>.<format>)")
	return cmd
}
