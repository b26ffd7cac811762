package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/measure-harness/internal/config"
	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/platform/db"
)

const testBundle = `{"resourceType": "Bundle", "type": "collection", "entry": [
  {"resource": {"resourceType": "Patient", "id": "pat-1"}}
]}`

const testResults = `{
  "Measure Population": ["e1", "e2"],
  "Encounter With Malnutrition Risk Screening Or Dietitian Referral": ["e1"]
}`

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeFixture lays out a manifest, one test case and its evaluator output.
func writeFixture(t *testing.T, screened int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "measure.yaml"), "name: GMCS\nlibrary: cql/GMCS.cql\n")
	mustWrite(t, filepath.Join(dir, "testcases", "screened", "bundle.json"), testBundle)
	expected := `{"groups": [{"groupId": "Group_1", "populations": {"initialPopulation": 2, "measurePopulation": 2, "observations": [` +
		string(rune('0'+screened)) + `]}}]}`
	mustWrite(t, filepath.Join(dir, "testcases", "screened", "expected.json"), expected)
	mustWrite(t, filepath.Join(dir, "results", "screened.json"), testResults)

	return &config.Config{
		LogLevel:         "info",
		MeasureManifest:  filepath.Join(dir, "measure.yaml"),
		TestCasesDir:     filepath.Join(dir, "testcases"),
		Evaluator:        "file",
		ResultsDir:       filepath.Join(dir, "results"),
		EvaluatorTimeout: time.Second,
		Workers:          2,
		OutputJSON:       filepath.Join(dir, "out", "results.json"),
		OutputXLSX:       filepath.Join(dir, "out", "results.xlsx"),
	}
}

func TestExecuteRun_Passes(t *testing.T) {
	cfg := writeFixture(t, 1)
	var out bytes.Buffer

	rep, err := executeRun(context.Background(), cfg, &out, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.Summary.OK() || rep.Summary.Passed != 1 {
		t.Errorf("expected one passing patient, got %+v", rep.Summary)
	}
	if !strings.Contains(out.String(), "1 patients: 1 passed") {
		t.Errorf("expected console summary, got:\n%s", out.String())
	}

	data, err := os.ReadFile(cfg.OutputJSON)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var results []map[string]interface{}
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(results) != 1 || results[0]["patientId"] != "pat-1" {
		t.Errorf("unexpected JSON results %v", results)
	}
	if _, err := os.Stat(cfg.OutputXLSX); err != nil {
		t.Errorf("expected xlsx workbook: %v", err)
	}
}

func TestExecuteRun_Fails(t *testing.T) {
	cfg := writeFixture(t, 2)
	cfg.OutputJSON, cfg.OutputXLSX = "", ""

	rep, err := executeRun(context.Background(), cfg, &bytes.Buffer{}, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Summary.OK() || rep.Summary.Failed != 1 {
		t.Errorf("expected one failing patient, got %+v", rep.Summary)
	}
}

func TestExecuteRun_NoTestCases(t *testing.T) {
	cfg := writeFixture(t, 1)
	cfg.TestCasesDir = t.TempDir()

	if _, err := executeRun(context.Background(), cfg, &bytes.Buffer{}, false, zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty test case directory")
	}
}

func TestScoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	mustWrite(t, path, `{"patientResults": {"pat-1": `+testResults+`}}`)

	var out bytes.Buffer
	if err := scoreFile(&out, path, "pat-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var groups []scoring.GroupRecord
	if err := json.Unmarshal(out.Bytes(), &groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(groups) != scoring.GroupCount {
		t.Fatalf("expected %d groups, got %d", scoring.GroupCount, len(groups))
	}
	if groups[0].GroupID != scoring.Group1 || groups[0].Populations.Observations[0] != 1 {
		t.Errorf("unexpected Group_1 %+v", groups[0])
	}
}

func TestScoreFile_Missing(t *testing.T) {
	if err := scoreFile(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.json"), "", nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewServer_Routes(t *testing.T) {
	e := newServer(&config.Config{BodyLimit: "1M"}, nil, nil, zerolog.Nop())

	tests := []struct {
		method string
		path   string
		body   string
		code   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/health/db", "", http.StatusOK},
		{http.MethodPost, "/api/v1/score", `{"results": ` + testResults + `}`, http.StatusOK},
		{http.MethodPost, "/api/v1/score", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/test-runs", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != tt.code {
			t.Errorf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.code, rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: expected request id header", tt.method, tt.path)
		}
	}
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "score", "serve", "migrate"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("expected %s command, got %v", name, err)
		}
	}
	if cmd, _, err := root.Find([]string{"migrate", "status"}); err != nil || cmd.Name() != "status" {
		t.Errorf("expected migrate status command, got %v", err)
	}
}

func TestPrintMigrationStatus(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printMigrationStatus(&out, []db.MigrationStatus{
		{Version: 1, Name: "test_run", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "test_result"},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[2], "applied") || !strings.Contains(lines[2], "2024-03-01 12:00:00") {
		t.Errorf("unexpected applied row %q", lines[2])
	}
	if !strings.Contains(lines[3], "pending") {
		t.Errorf("unexpected pending row %q", lines[3])
	}
}
