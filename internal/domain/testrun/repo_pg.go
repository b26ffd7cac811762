package testrun

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/measure-harness/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type testRunRepoPG struct{ pool *pgxpool.Pool }

func NewTestRunRepoPG(pool *pgxpool.Pool) TestRunRepository {
	return &testRunRepoPG{pool: pool}
}

func (r *testRunRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const runCols = `id, measure, library, evaluator, total, passed, failed, errored,
	summary, started_at, finished_at, created_at`

const resultCols = `id, run_id, position, test_case, patient_id, status, error,
	group_id, passed, expected, actual, expected_score, actual_score, mismatches`

func (r *testRunRepoPG) scanRun(row pgx.Row) (*TestRun, error) {
	var run TestRun
	err := row.Scan(&run.ID, &run.Measure, &run.Library, &run.Evaluator,
		&run.Total, &run.Passed, &run.Failed, &run.Errored,
		&run.Summary, &run.StartedAt, &run.FinishedAt, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &run, err
}

func (r *testRunRepoPG) scanResult(row pgx.Row) (*TestResult, error) {
	var res TestResult
	err := row.Scan(&res.ID, &res.RunID, &res.Position, &res.TestCase, &res.PatientID,
		&res.Status, &res.Error, &res.GroupID, &res.Passed, &res.Expected, &res.Actual,
		&res.ExpectedScore, &res.ActualScore, &res.Mismatches)
	return &res, err
}

func (r *testRunRepoPG) Create(ctx context.Context, run *TestRun) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		run.ID = uuid.New()
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO test_run (id, measure, library, evaluator,
				total, passed, failed, errored, summary, started_at, finished_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING created_at`,
			run.ID, run.Measure, run.Library, run.Evaluator,
			run.Total, run.Passed, run.Failed, run.Errored,
			run.Summary, run.StartedAt, run.FinishedAt).Scan(&run.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert test_run: %w", err)
		}

		for _, res := range run.Results {
			res.ID = uuid.New()
			res.RunID = run.ID
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO test_result (`+resultCols+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
				res.ID, res.RunID, res.Position, res.TestCase, res.PatientID,
				res.Status, res.Error, res.GroupID, res.Passed, res.Expected, res.Actual,
				res.ExpectedScore, res.ActualScore, res.Mismatches)
			if err != nil {
				return fmt.Errorf("insert test_result %d: %w", res.Position, err)
			}
		}
		return nil
	})
}

func (r *testRunRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestRun, error) {
	run, err := r.scanRun(r.conn(ctx).QueryRow(ctx, `SELECT `+runCols+` FROM test_run WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+resultCols+` FROM test_result WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		res, err := r.scanResult(rows)
		if err != nil {
			return nil, err
		}
		run.Results = append(run.Results, res)
	}
	return run, rows.Err()
}

func (r *testRunRepoPG) List(ctx context.Context, limit, offset int) ([]*TestRun, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM test_run`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+runCols+` FROM test_run ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TestRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, run)
	}
	return items, total, rows.Err()
}
