package report

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/services/features"
)

type Format string

const (
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

var ErrUnknownFormat = errors.New("unknown report format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case XLSX, PDF:
		return f, nil
	case "":
		return XLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename is the download name for a run report.
func (f Format) Filename(runID string) string {
	return fmt.Sprintf("run-%s.%s", runID, f)
}

// Build renders the report for run and its analysis.
func Build(f Format, run *models.Run, an models.Analysis) ([]byte, error) {
	switch f {
	case XLSX:
		return BuildXLSX(run, an)
	case PDF:
		return BuildPDF(run, an)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// BuildXLSX writes a summary sheet and a samples sheet with one event column per phenomenon.
func BuildXLSX(run *models.Run, an models.Analysis) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	samplesSheet := "samples"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(samplesSheet); err != nil {
		return nil, err
	}

	lo, hi := features.Extremes(run.Series.Values())
	summary := [][2]interface{}{
		{"Run", run.ID},
		{"Source", run.Source},
		{"Saved at", run.SavedAt.UTC().Format(time.RFC3339)},
		{"Samples", len(run.Series)},
		{"Duration (s)", run.Series.Duration()},
		{"Min (V)", lo},
		{"Max (V)", hi},
		{"RMS (V)", features.RMS(run.Series.Values())},
		{"Nominal (V)", an.Thresholds.Nominal},
		{"Band (V)", fmt.Sprintf("%.1f - %.1f", an.Thresholds.Lower(), an.Thresholds.Upper())},
		{"Exclusive", an.Exclusive},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Power quality report")
	row := 3
	for _, kv := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
		row++
	}
	row++
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Phenomenon")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), "Events")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), "Agreement")
	phenomena := sortedPhenomena(an)
	for _, p := range phenomena {
		row++
		det := an.Detections[p]
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(p))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), det.Count)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), det.Agreement)
	}

	header := []interface{}{"t (s)", "v (V)"}
	for _, p := range phenomena {
		header = append(header, string(p))
	}
	if err := f.SetSheetRow(samplesSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, s := range run.Series {
		cells := []interface{}{s.T, s.V}
		for _, p := range phenomena {
			ev := an.Detections[p].Events
			cells = append(cells, i < len(ev) && ev[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(samplesSheet, cell, &cells); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders the run summary and the event times of each phenomenon.
func BuildPDF(run *models.Run, an models.Analysis) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Power Quality Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	lo, hi := features.Extremes(run.Series.Values())
	for _, line := range []string{
		fmt.Sprintf("Run: %s", run.ID),
		fmt.Sprintf("Source: %s", run.Source),
		fmt.Sprintf("Saved: %s", run.SavedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Samples: %d over %.2f s", len(run.Series), run.Series.Duration()),
		fmt.Sprintf("Voltage: min %.1f V, max %.1f V, rms %.1f V", lo, hi, features.RMS(run.Series.Values())),
		fmt.Sprintf("Band: %.1f - %.1f V (nominal %.0f V)", an.Thresholds.Lower(), an.Thresholds.Upper(), an.Thresholds.Nominal),
	} {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	phenomena := sortedPhenomena(an)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Phenomenon", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Events", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Agreement", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, p := range phenomena {
		det := an.Detections[p]
		pdf.CellFormat(40, 6, string(p), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", det.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f%%", det.Agreement*100), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	for _, p := range phenomena {
		times := an.Detections[p].EventTimes(run.Series)
		if len(times) == 0 {
			continue
		}
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%s events (s)", p))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		parts := make([]string, len(times))
		for i, t := range times {
			parts[i] = fmt.Sprintf("%.3f", t)
		}
		pdf.MultiCell(0, 5, strings.Join(parts, ", "), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sortedPhenomena keeps the canonical priority order.
func sortedPhenomena(an models.Analysis) []models.Phenomenon {
	out := make([]models.Phenomenon, 0, len(an.Detections))
	for p := range an.Detections {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}
