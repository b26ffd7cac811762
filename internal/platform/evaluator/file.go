package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileEvaluator reads precomputed results from <dir>/<test case>.json.
type FileEvaluator struct {
	dir string
}

func NewFileEvaluator(dir string) *FileEvaluator {
	return &FileEvaluator{dir: dir}
}

func (e *FileEvaluator) Evaluate(ctx context.Context, req Request) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(e.dir, req.TestCase+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoResults)
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return DecodeResults(data, req.PatientID)
}
