package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test-runs"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=500", MaxLimit, 0},
		{"?limit=-3&offset=-1", DefaultLimit, 0},
		{"?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := paramsFor(t, tt.query)
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("%q: expected limit=%d offset=%d, got %+v", tt.query, tt.limit, tt.offset, p)
		}
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a", "b"}, 50, Params{Limit: 20, Offset: 20}, "/api/v1/test-runs")
	if r.Total != 50 || r.Limit != 20 || r.Offset != 20 {
		t.Errorf("unexpected response %+v", r)
	}
	if !r.HasMore {
		t.Error("expected HasMore")
	}
	if r.Next != "/api/v1/test-runs?limit=20&offset=40" {
		t.Errorf("unexpected next link %q", r.Next)
	}
	if r.Previous != "/api/v1/test-runs?limit=20&offset=0" {
		t.Errorf("unexpected previous link %q", r.Previous)
	}
}

func TestNewResponse_SinglePage(t *testing.T) {
	r := NewResponse(nil, 5, Params{Limit: 20}, "/api/v1/test-runs")
	if r.HasMore || r.Next != "" || r.Previous != "" {
		t.Errorf("expected no links for a single page, got %+v", r)
	}
}

func TestNewResponse_NoBasePath(t *testing.T) {
	r := NewResponse(nil, 100, Params{Limit: 10, Offset: 10}, "")
	if r.Next != "" || r.Previous != "" {
		t.Errorf("expected no links without a base path, got %+v", r)
	}
	if !r.HasMore {
		t.Error("expected HasMore")
	}
}

func TestParams_Offsets(t *testing.T) {
	tests := []struct {
		p        Params
		total    int
		hasNext  bool
		hasPrev  bool
		next     int
		previous int
	}{
		{Params{Limit: 10, Offset: 0}, 25, true, false, 10, 0},
		{Params{Limit: 10, Offset: 10}, 25, true, true, 20, 0},
		{Params{Limit: 10, Offset: 20}, 25, false, true, 30, 10},
		{Params{Limit: 10, Offset: 5}, 10, false, true, 15, 0},
	}
	for _, tt := range tests {
		if got := tt.p.HasNext(tt.total); got != tt.hasNext {
			t.Errorf("%+v HasNext(%d) = %v", tt.p, tt.total, got)
		}
		if got := tt.p.HasPrevious(); got != tt.hasPrev {
			t.Errorf("%+v HasPrevious() = %v", tt.p, got)
		}
		if got := tt.p.NextOffset(); got != tt.next {
			t.Errorf("%+v NextOffset() = %d", tt.p, got)
		}
		if got := tt.p.PreviousOffset(); got != tt.previous {
			t.Errorf("%+v PreviousOffset() = %d", tt.p, got)
		}
	}
}
