package scoring

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/measure-harness/internal/platform/fhir"
)

// Handler exposes scoring and reconciliation over HTTP.
type Handler struct {
	names ExpressionNames
}

// NewHandler returns a handler that resolves criteria with names unless a
// request carries its own overrides.
func NewHandler(names ExpressionNames) *Handler {
	return &Handler{names: names}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/score", h.Score)
	api.POST("/reconcile", h.Reconcile)
}

// ScoreRequest carries raw evaluator output keyed by define name.
type ScoreRequest struct {
	Results  map[string]any    `json:"results"`
	Criteria map[string]string `json:"criteria,omitempty"`
}

type ScoreResponse struct {
	Groups     []GroupRecord    `json:"groups"`
	Encounters []EncounterScore `json:"encounters"`
}

// ReconcileRequest compares expected records against either actual records
// or raw evaluator output.
type ReconcileRequest struct {
	Expected []GroupRecord     `json:"expected"`
	Actual   []GroupRecord     `json:"actual,omitempty"`
	Results  map[string]any    `json:"results,omitempty"`
	Criteria map[string]string `json:"criteria,omitempty"`
}

type ReconcileResponse struct {
	Passed      bool              `json:"passed"`
	Unmatched   int               `json:"unmatched"`
	Comparisons []GroupComparison `json:"comparisons"`
}

func (h *Handler) Score(c echo.Context) error {
	var req ScoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	if req.Results == nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("results is required"))
	}
	names, err := h.resolveNames(req.Criteria)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}

	sets := NewCriterionSets(req.Results, names)
	return c.JSON(http.StatusOK, ScoreResponse{
		Groups:     BuildGroups(sets),
		Encounters: ScoreEncounters(sets),
	})
}

func (h *Handler) Reconcile(c echo.Context) error {
	var req ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	if len(req.Expected) == 0 {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("expected is required"))
	}

	actual := req.Actual
	if actual == nil {
		if req.Results == nil {
			return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("one of actual or results is required"))
		}
		names, err := h.resolveNames(req.Criteria)
		if err != nil {
			return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
		}
		actual = BuildGroups(NewCriterionSets(req.Results, names))
	}

	comparisons := CompareGroups(req.Expected, actual)
	return c.JSON(http.StatusOK, ReconcileResponse{
		Passed:      AllPassed(comparisons),
		Unmatched:   UnmatchedGroups(req.Expected, actual),
		Comparisons: comparisons,
	})
}

// resolveNames layers request overrides on top of the handler's names.
func (h *Handler) resolveNames(overrides map[string]string) (ExpressionNames, error) {
	if len(overrides) == 0 {
		return h.names, nil
	}
	parsed, err := ParseExpressionNames(overrides)
	if err != nil {
		return nil, err
	}
	merged := make(ExpressionNames, len(h.names)+len(parsed))
	for c, name := range h.names {
		merged[c] = name
	}
	for c, name := range parsed {
		merged[c] = name
	}
	return merged, nil
}
