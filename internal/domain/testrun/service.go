package testrun

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	runs TestRunRepository
}

func NewService(runs TestRunRepository) *Service {
	return &Service{runs: runs}
}

func (s *Service) RecordRun(ctx context.Context, run *TestRun) error {
	if run.Measure == "" {
		return fmt.Errorf("measure is required")
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("finished_at must not be before started_at")
	}
	if run.Total != run.Passed+run.Failed+run.Errored {
		return fmt.Errorf("total %d does not match passed+failed+errored %d", run.Total, run.Passed+run.Failed+run.Errored)
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return fmt.Errorf("record test run: %w", err)
	}
	return nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*TestRun, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]*TestRun, int, error) {
	return s.runs.List(ctx, limit, offset)
}
