package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"PQAnalyzer/internal/domain/models"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored acquisition runs",
	}
	cmd.AddCommand(newRunsListCommand(ctx))
	cmd.AddCommand(newRunsShowCommand(ctx))
	cmd.AddCommand(newRunsDeleteCommand(ctx))
	return cmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureStack(true); err != nil {
				return err
			}
			summaries, err := ctx.runs.List(cmd.Context(), models.RunQuery{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, summaries)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs stored")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), runsTable(summaries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var flags analysisFlags
	var analyze bool
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run and optionally its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params(cmd)
			if err != nil {
				return err
			}
			if err := ctx.ensureStack(true); err != nil {
				return err
			}
			summary, err := ctx.runs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !analyze {
				if jsonOut {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintln(cmd.OutOrStdout(), runsTable([]models.RunSummary{summary}))
				return nil
			}
			an, err := ctx.analyzer.AnalyzeRun(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, struct {
					Run      models.RunSummary `json:"run"`
					Analysis models.Analysis   `json:"analysis"`
				}{summary, an})
			}
			fmt.Fprintln(cmd.OutOrStdout(), runsTable([]models.RunSummary{summary}))
			printAnalysis(cmd, an)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&analyze, "analyze", "a", false, "Run detection over the stored samples")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureStack(true); err != nil {
				return err
			}
			if err := ctx.runs.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func runsTable(summaries []models.RunSummary) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.ID,
			s.Source,
			s.SavedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(s.Samples),
			formatFloat(s.Duration, 1),
			formatFloat(s.MinV, 1),
			formatFloat(s.MaxV, 1),
			formatFloat(s.RMS, 1),
		})
	}
	return renderTable(
		[]string{"ID", "Source", "Saved", "Samples", "Duration (s)", "Min V", "Max V", "RMS V"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}
