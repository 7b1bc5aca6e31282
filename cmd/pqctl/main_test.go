package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/repository"
	"PQAnalyzer/internal/services/classifier"
)

type cliTestEnv struct {
	configPath string
	dbPath     string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	modelDir := filepath.Join(base, "models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Predicts an event when the step lands above 300 V.
	forest := classifier.Forest{Name: "swell", Trees: []classifier.Tree{{Nodes: []classifier.Node{
		{Feature: 1, Threshold: 300, Left: 1, Right: 2},
		{Leaf: true, Class: 0},
		{Leaf: true, Class: 1},
	}}}}
	b, err := json.Marshal(forest)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "swell.json"), b, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.yaml"),
		dbPath:     filepath.Join(base, "data", "pq.db"),
		baseDir:    base,
	}
	cfg := "storage:\n  data_dir: " + filepath.Join(base, "data") + "\n" +
		"classifier:\n  model_dir: " + modelDir + "\n" +
		"logging:\n  level: error\n"
	if err := os.WriteFile(env.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "run.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func (e *cliTestEnv) saveRun(t *testing.T, id string) {
	t.Helper()
	store, err := repository.OpenSQLiteRunStore(context.Background(), e.dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	run := &models.Run{ID: id, Source: "simulated", SavedAt: time.Now().UTC(), Series: testSeries()}
	if err := store.Save(context.Background(), run); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testSeries peaks at t=1 (350 V) and t=3 (260 V).
func testSeries() models.Series {
	return models.Series{{T: 0, V: 220}, {T: 1, V: 350}, {T: 2, V: 220}, {T: 3, V: 260}, {T: 4, V: 220}}
}

const testCSV = "0,220\n1,350\nbad,row\n2,220\n\n3,260\n4,220\n"

func TestAnalyzeCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, testCSV)

	out, errOut, err := env.run(t, "analyze", path, "--json")
	if err != nil {
		t.Fatalf("analyze: %v (%s)", err, errOut)
	}
	if !strings.Contains(errOut, "skipped 1 malformed rows") {
		t.Fatalf("expected skipped-row notice, got %q", errOut)
	}
	var an models.Analysis
	if err := json.Unmarshal([]byte(out), &an); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if an.Samples != 5 || an.Totals[models.Swell] != 1 {
		t.Fatalf("unexpected analysis %+v", an)
	}
	if !an.Detections[models.Swell].Events[1] {
		t.Fatalf("event at t=1 not flagged: %v", an.Detections[models.Swell].Events)
	}
}

func TestAnalyzeCommandTable(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, testCSV)

	out, _, err := env.run(t, "analyze", path, "--phenomenon", "swell")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"5 samples", "Phenomenon", "swell"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}

func TestAnalyzeMissingModelFails(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, testCSV)

	_, _, err := env.run(t, "analyze", path, "--phenomenon", "sag")
	if err == nil {
		t.Fatalf("expected error without a sag model")
	}
}

func TestAnalyzeRejectsUnknownPhenomenon(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, testCSV)

	if _, _, err := env.run(t, "analyze", path, "--phenomenon", "flicker"); err == nil {
		t.Fatalf("expected error for unknown phenomenon")
	}
}

func TestPlaybackCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, testCSV)

	out, _, err := env.run(t, "playback", path, "--frame", "0", "--width", "2", "--json")
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	var v models.PlaybackView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if v.Start != 0 || v.End != 2 || v.Wrapped {
		t.Fatalf("unexpected window %+v", v)
	}
	if len(v.Events[models.Swell]) != 1 || v.Events[models.Swell][0] != 1 {
		t.Fatalf("events = %v", v.Events)
	}
}

func TestPlaybackFollowStopsAfterFrames(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, testCSV)

	out, _, err := env.run(t, "playback", path, "--follow", "--frames", "3", "--every", "1ms")
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if n := strings.Count(out, "frame "); n != 3 {
		t.Fatalf("expected 3 views, got %d\n%s", n, out)
	}
}

func TestRunsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "runs", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No runs stored") {
		t.Fatalf("unexpected list output %q", out)
	}

	env.saveRun(t, "run-a")

	out, _, err = env.run(t, "runs", "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var summaries []models.RunSummary
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != "run-a" || summaries[0].Samples != 5 {
		t.Fatalf("summaries = %+v", summaries)
	}

	out, _, err = env.run(t, "runs", "show", "run-a", "--analyze")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "run-a") || !strings.Contains(out, "swell") {
		t.Fatalf("unexpected show output\n%s", out)
	}

	if _, _, err := env.run(t, "runs", "delete", "run-a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _, err = env.run(t, "runs", "show", "run-a")
	if !errors.Is(err, domrepo.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.saveRun(t, "run-x")

	out := filepath.Join(env.baseDir, "report.pdf")
	if _, _, err := env.run(t, "export", "run-x", "--format", "pdf", "--out", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", b[:8])
	}

	if _, _, err := env.run(t, "export", "run-x", "--format", "csv"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
