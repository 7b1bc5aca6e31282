package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/services/detection"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

func orderedPhenomena[T any](m map[models.Phenomenon]T) []models.Phenomenon {
	out := make([]models.Phenomenon, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

func analysisTable(an models.Analysis) string {
	rows := make([][]string, 0, len(an.Detections))
	for _, p := range orderedPhenomena(an.Detections) {
		d := an.Detections[p]
		rows = append(rows, []string{
			string(p),
			strconv.Itoa(detection.Count(d.Peaks)),
			strconv.Itoa(detection.Count(d.Labels)),
			strconv.Itoa(d.Count),
			formatFloat(d.Agreement*100, 1) + "%",
		})
	}
	return renderTable(
		[]string{"Phenomenon", "Peaks", "Labeled", "Events", "Agreement"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func printAnalysis(cmd *cobra.Command, an models.Analysis) {
	out := cmd.OutOrStdout()
	mode := "independent"
	if an.Exclusive {
		mode = "exclusive"
	}
	fmt.Fprintf(out, "%d samples, band %s..%s V, %s\n",
		an.Samples, formatFloat(an.Thresholds.Lower(), 1), formatFloat(an.Thresholds.Upper(), 1), mode)
	fmt.Fprintln(out, analysisTable(an))
}

func printPlaybackView(cmd *cobra.Command, v models.PlaybackView) {
	out := cmd.OutOrStdout()
	wrapped := ""
	if v.Wrapped {
		wrapped = " (wrapped)"
	}
	fmt.Fprintf(out, "frame %s window [%s, %s]%s %d samples\n",
		formatFloat(v.Frame, 2), formatFloat(v.Start, 2), formatFloat(v.End, 2), wrapped, len(v.Samples))
	for _, p := range orderedPhenomena(v.Events) {
		times := make([]string, len(v.Events[p]))
		for i, t := range v.Events[p] {
			times[i] = formatFloat(t, 2)
		}
		fmt.Fprintf(out, "  %-8s %d events %s\n", p, v.Counts[p], strings.Join(times, " "))
	}
}
