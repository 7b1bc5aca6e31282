package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/repository"
	"PQAnalyzer/internal/service/ratelimit"
	"PQAnalyzer/internal/services/calibration"
	"PQAnalyzer/internal/services/classifier"
	"PQAnalyzer/internal/services/source"
	"PQAnalyzer/internal/usecase"
	"PQAnalyzer/pkg/cache"
	xhttp "PQAnalyzer/pkg/http"
	xlogger "PQAnalyzer/pkg/logger"
	"PQAnalyzer/pkg/metrics"
)

type constClassifier bool

func (c constClassifier) Predict(_ context.Context, rows [][2]float64) ([]bool, error) {
	out := make([]bool, len(rows))
	for i := range out {
		out[i] = bool(c)
	}
	return out, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestEcho(t *testing.T) *echo.Echo {
	return newTestEchoWithLimiter(t, nil)
}

func newTestEchoWithLimiter(t *testing.T, rl *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	dir := t.TempDir()
	store, err := repository.OpenSQLiteRunStore(context.Background(), filepath.Join(dir, "pq.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	reg := classifier.NewRegistry(classifier.WithModelDir(filepath.Join(dir, "models")))
	reg.Register(models.Swell, constClassifier(true))

	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { _ = memCache.Close() })

	l := xlogger.NewNop()
	analyzer := usecase.NewAnalyzer(usecase.AnalyzerConfig{Phenomena: []models.Phenomenon{models.Swell}, CacheTTL: time.Minute}, store, reg, memCache, metrics.Nop{}, l)
	acq := usecase.NewAcquisition(
		usecase.AcquisitionConfig{
			LockPath:      filepath.Join(dir, "acquisition.lock"),
			Interval:      time.Millisecond,
			BufferSize:    128,
			DefaultSource: "simulated",
		},
		map[string]usecase.SourceFactory{
			"simulated": func() (domrepo.SampleSource, error) { return source.NewSimulated(1.257, 0.3, 200), nil },
		},
		store,
		calibration.Default(),
		nil,
		metrics.Nop{},
		l,
	)
	t.Cleanup(func() { _ = acq.Shutdown(context.Background()) })

	e := echo.New()
	xhttp.Handlers{
		NewAcquisitionHandler(l, acq, analyzer, 10, 5*time.Millisecond),
		NewRunsHandler(l, usecase.NewRuns(store, analyzer, l), analyzer, rl),
	}.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func TestAcquisitionToRunLifecycle(t *testing.T) {
	e := newTestEcho(t)

	rec, env := do(t, e, http.MethodPost, "/api/acquisitions/start", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	var st models.AcquisitionStatus
	_ = json.Unmarshal(env.Data, &st)
	if !st.Running || st.Source != "simulated" {
		t.Fatalf("status = %+v", st)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		_, env = do(t, e, http.MethodGet, "/api/acquisitions/status", "")
		_ = json.Unmarshal(env.Data, &st)
		if st.Samples >= 20 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("acquisition produced %d samples", st.Samples)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec, env = do(t, e, http.MethodGet, "/api/acquisitions/live?phenomenon=swell", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("live: %d %s", rec.Code, rec.Body.String())
	}
	var live models.LiveView
	_ = json.Unmarshal(env.Data, &live)
	if len(live.Samples) == 0 || live.Analysis.RunID != st.RunID {
		t.Fatalf("live view = %+v", live)
	}

	rec, _ = do(t, e, http.MethodPost, "/api/acquisitions/start", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start: %d", rec.Code)
	}

	rec, env = do(t, e, http.MethodPost, "/api/acquisitions/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: %d %s", rec.Code, rec.Body.String())
	}
	var sum models.RunSummary
	_ = json.Unmarshal(env.Data, &sum)
	if sum.ID != st.RunID || sum.Samples < 20 || sum.MaxV < 100 {
		t.Fatalf("summary = %+v", sum)
	}

	rec, _ = do(t, e, http.MethodPost, "/api/acquisitions/stop", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("idle stop: %d", rec.Code)
	}

	_, env = do(t, e, http.MethodGet, "/api/runs", "")
	var list xhttp.ListDataResponse
	_ = json.Unmarshal(env.Data, &list)
	if list.Total != 1 {
		t.Fatalf("runs total = %d", list.Total)
	}

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	_, env = do(t, e, http.MethodGet, "/api/runs?since="+future, "")
	_ = json.Unmarshal(env.Data, &list)
	if list.Total != 0 {
		t.Fatalf("runs since future = %d", list.Total)
	}

	rec, env = do(t, e, http.MethodGet, "/api/runs/"+sum.ID+"/analysis?exclusive=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analysis: %d %s", rec.Code, rec.Body.String())
	}
	var an models.Analysis
	_ = json.Unmarshal(env.Data, &an)
	if an.RunID != sum.ID || !an.Exclusive || an.Samples != sum.Samples {
		t.Fatalf("analysis = %+v", an)
	}

	rec, env = do(t, e, http.MethodGet, "/api/runs/"+sum.ID+"/playback?frame=0&width=0.005", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("playback: %d %s", rec.Code, rec.Body.String())
	}
	var view models.PlaybackView
	_ = json.Unmarshal(env.Data, &view)
	if view.Start != 0 || view.End <= 0 {
		t.Fatalf("view = %+v", view)
	}

	rec, _ = do(t, e, http.MethodGet, "/api/runs/"+sum.ID+"/export?format=xlsx", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), ".xlsx") || rec.Body.Len() == 0 {
		t.Fatalf("export: %d %v", rec.Code, rec.Header())
	}
	rec, _ = do(t, e, http.MethodGet, "/api/runs/"+sum.ID+"/export?format=docx", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad format: %d", rec.Code)
	}

	rec, _ = do(t, e, http.MethodDelete, "/api/runs/"+sum.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec, _ = do(t, e, http.MethodGet, "/api/runs/"+sum.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", rec.Code)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	e := newTestEcho(t)
	body := `{"samples":[[0,220],[1,250],[2,220],[3,250],[4,220]]}`

	rec, env := do(t, e, http.MethodPost, "/api/analyze", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: %d %s", rec.Code, rec.Body.String())
	}
	var an models.Analysis
	_ = json.Unmarshal(env.Data, &an)
	if an.Totals[models.Swell] != 2 || an.Samples != 5 {
		t.Fatalf("analysis = %+v", an)
	}

	rec, env = do(t, e, http.MethodPost, "/api/analyze", `{"samples":[[0,250],[1],[2,300],[3,260,999],[4,250]]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze malformed rows: %d %s", rec.Code, rec.Body.String())
	}
	an = models.Analysis{}
	_ = json.Unmarshal(env.Data, &an)
	if an.Samples != 3 || an.Skipped != 2 || an.Totals[models.Swell] != 1 {
		t.Fatalf("malformed rows analysis = %+v", an)
	}
	if ev := an.Detections[models.Swell].Events; len(ev) != 3 || !ev[1] {
		t.Fatalf("swell events = %v", ev)
	}

	rec, _ = do(t, e, http.MethodPost, "/api/analyze", `{"samples":[[0,1]],"phenomena":["flicker"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown phenomenon: %d", rec.Code)
	}

	rec, _ = do(t, e, http.MethodPost, "/api/analyze", `{"samples":[[0,1],[1,2]],"phenomena":["harmonic"]}`)
	if rec.Code != http.StatusServiceUnavailable || !bytes.Contains(rec.Body.Bytes(), []byte("ERR_MODEL_UNAVAILABLE")) {
		t.Fatalf("missing model: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(t, e, http.MethodGet, "/api/runs/missing/analysis", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing run: %d", rec.Code)
	}
}

func TestStreamPushesSamples(t *testing.T) {
	e := newTestEcho(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	rec, _ := do(t, e, http.MethodPost, "/api/acquisitions/start", `{"source":"simulated"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/acquisitions/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	got := 0
	for got == 0 {
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		if !frame.Status.Running {
			t.Fatalf("frame status = %+v", frame.Status)
		}
		got += len(frame.Samples)
	}
}

func TestAnalyzeIsRateLimited(t *testing.T) {
	e := newTestEchoWithLimiter(t, ratelimit.New(1, 0))
	body := `{"samples":[[0,220],[1,250],[2,220]]}`
	if rec, _ := do(t, e, http.MethodPost, "/api/analyze", body); rec.Code != http.StatusOK {
		t.Fatalf("first: %d", rec.Code)
	}
	if rec, _ := do(t, e, http.MethodPost, "/api/analyze", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rec.Code)
	}
}
