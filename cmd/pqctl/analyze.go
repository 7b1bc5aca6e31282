package main

import (
	"github.com/spf13/cobra"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var flags analysisFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Detect disturbances in a time,voltage CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params(cmd)
			if err != nil {
				return err
			}
			s, err := readSeries(cmd, args[0])
			if err != nil {
				return err
			}
			if err := ctx.ensureStack(false); err != nil {
				return err
			}
			an, err := ctx.analyzer.Analyze(cmd.Context(), s, params)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, an)
			}
			printAnalysis(cmd, an)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full analysis as JSON")
	return cmd
}
