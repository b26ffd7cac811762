package evaluator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CommandEvaluator runs an external CQL engine once per patient and reads
// its results from stdout. The template is split on whitespace; each argument
// may contain the placeholders {library}, {bundle}, {patient}, {start} and
// {end}.
type CommandEvaluator struct {
	args    []string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewCommandEvaluator(template string, timeout time.Duration, logger zerolog.Logger) (*CommandEvaluator, error) {
	args := strings.Fields(template)
	if len(args) == 0 {
		return nil, errors.New("evaluator command is empty")
	}
	return &CommandEvaluator{args: args, timeout: timeout, logger: logger}, nil
}

// Args returns the command line for req.
func (e *CommandEvaluator) Args(req Request) []string {
	r := strings.NewReplacer(
		"{library}", req.Library,
		"{bundle}", req.BundlePath,
		"{patient}", req.PatientID,
		"{start}", formatDate(req.PeriodStart),
		"{end}", formatDate(req.PeriodEnd),
	)
	out := make([]string, len(e.args))
	for i, a := range e.args {
		out[i] = r.Replace(a)
	}
	return out
}

func (e *CommandEvaluator) Evaluate(ctx context.Context, req Request) (map[string]any, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := e.Args(req)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	e.logger.Debug().
		Str("test_case", req.TestCase).
		Str("patient", req.PatientID).
		Strs("args", args).
		Dur("elapsed", time.Since(start)).
		Msg("evaluator command finished")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("evaluate %s: %w", req.TestCase, ctxErr)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("evaluate %s: %w", req.TestCase, err)
		}
		return nil, fmt.Errorf("evaluate %s: %w: %s", req.TestCase, err, msg)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("evaluate %s: %w", req.TestCase, ErrNoResults)
	}
	return DecodeResults(stdout.Bytes(), req.PatientID)
}
