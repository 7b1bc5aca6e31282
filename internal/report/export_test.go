package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"PQAnalyzer/internal/domain/models"
)

func sampleRun() (*models.Run, models.Analysis) {
	run := &models.Run{
		ID:      "r1",
		Source:  "simulated",
		SavedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Series:  models.Series{{T: 0, V: 220}, {T: 0.1, V: 260}, {T: 0.2, V: 221}},
	}
	an := models.Analysis{
		RunID:      "r1",
		Samples:    3,
		Thresholds: models.DefaultThresholds(),
		Detections: map[models.Phenomenon]models.Detection{
			models.Sag:   {Phenomenon: models.Sag, Events: []bool{false, false, false}},
			models.Swell: {Phenomenon: models.Swell, Events: []bool{false, true, false}, Count: 1, Agreement: 0.5},
		},
		Totals: map[models.Phenomenon]int{models.Swell: 1, models.Sag: 0},
	}
	return run, an
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("PDF"); err != nil || f != PDF {
		t.Fatalf("pdf: %v %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != XLSX {
		t.Fatalf("default: %v %v", f, err)
	}
	if _, err := ParseFormat("docx"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if PDF.Filename("r1") != "run-r1.pdf" {
		t.Fatalf("filename = %s", PDF.Filename("r1"))
	}
}

func TestBuildXLSX(t *testing.T) {
	run, an := sampleRun()
	b, err := Build(XLSX, run, an)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	head, err := f.GetCellValue("samples", "C1")
	if err != nil || head != "swell" {
		t.Fatalf("C1 = %q (%v)", head, err)
	}
	flag, err := f.GetCellValue("samples", "C3")
	if err != nil || flag != "TRUE" {
		t.Fatalf("C3 = %q (%v)", flag, err)
	}
	runID, _ := f.GetCellValue("summary", "B3")
	if runID != "r1" {
		t.Fatalf("summary run = %q", runID)
	}
}

func TestBuildPDF(t *testing.T) {
	run, an := sampleRun()
	b, err := Build(PDF, run, an)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", b[:8])
	}
}
