package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"caller id kept", "run-42", true},
		{"oversized id replaced", strings.Repeat("x", 200), false},
	}

	for _, tt := range tests {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)
		if tt.incoming != "" {
			req.Header.Set(RequestIDHeader, tt.incoming)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		var seen string
		err := RequestID()(func(c echo.Context) error {
			seen, _ = c.Get("request_id").(string)
			return c.NoContent(http.StatusNoContent)
		})(c)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}

		if seen == "" {
			t.Errorf("%s: expected request_id on context", tt.name)
		}
		if got := rec.Header().Get(RequestIDHeader); got != seen {
			t.Errorf("%s: response header %q does not match context %q", tt.name, got, seen)
		}
		if tt.keep && seen != tt.incoming {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.incoming, seen)
		}
		if !tt.keep && seen == tt.incoming {
			t.Errorf("%s: expected a fresh id", tt.name)
		}
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, `"level":"info"`},
		{http.StatusBadRequest, `"level":"warn"`},
		{http.StatusInternalServerError, `"level":"error"`},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/test-runs", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := Logger(zerolog.New(&buf))(func(c echo.Context) error {
			return c.NoContent(tt.status)
		})(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: expected %s, got %s", tt.status, tt.level, buf.String())
		}
		if !strings.Contains(buf.String(), `"path":"/api/v1/test-runs"`) {
			t.Errorf("status %d: expected path field, got %s", tt.status, buf.String())
		}
	}
}

func TestLogger_HandlesReturnedError(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Logger(zerolog.New(&buf))(func(c echo.Context) error {
		return echo.ErrNotFound
	})(c)
	if err != nil {
		t.Fatalf("expected error to be handled, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 written, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Errorf("expected status 404 logged, got %s", buf.String())
	}
}

func TestLogger_AttachesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-123")

	handler := func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inside")
		return c.NoContent(http.StatusOK)
	}
	if err := Logger(zerolog.New(&buf))(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, `"request_id":"req-123"`) {
			t.Errorf("expected request_id on every line, got %s", line)
		}
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		panic("index out of range")
	})(c)
	if err != nil {
		t.Fatalf("expected outcome to be written, got error %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"resourceType":"OperationOutcome"`) {
		t.Errorf("expected OperationOutcome body, got %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "index out of range") {
		t.Errorf("expected panic value logged, got %s", buf.String())
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Recovery(zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
