package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"meshbatch/internal/config"
	"meshbatch/internal/fileutil"
	"meshbatch/internal/ledger"
	"meshbatch/internal/logging"
	"meshbatch/internal/procexec"
)

// ErrInvalidInputPath marks a missing or non-directory input directory.
var ErrInvalidInputPath = errors.New("invalid input path")

// Ledger is the subset of the run ledger the solver needs.
type Ledger interface {
	RecordArtifact(ctx context.Context, artifact ledger.Artifact) error
	LastSuccess(ctx context.Context, input, output string) (*ledger.Artifact, error)
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLedger records artifacts and enables resume.
func WithLedger(store Ledger) Option {
	return func(r *Runner) {
		r.ledger = store
	}
}

// Runner invokes the solver binary once per input file.
type Runner struct {
	binary  string
	jobs    int
	timeout time.Duration
	prefix  string
	ext     string
	exec    procexec.Executor
	ledger  Ledger
	logger  *slog.Logger
}

// New constructs a Runner from the [solver] section.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	binary := strings.TrimSpace(cfg.Solver.Binary)
	if binary == "" {
		return nil, errors.New("solver binary required")
	}
	r := &Runner{
		binary:  binary,
		jobs:    cfg.Solver.Jobs,
		timeout: time.Duration(cfg.Solver.Timeout) * time.Second,
		prefix:  cfg.Solver.OutputPrefix,
		ext:     cfg.Solver.OutputExtension,
		exec:    procexec.Command{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.jobs < 1 {
		r.jobs = 1
	}
	r.logger = logging.NewComponentLogger(r.logger, "solver")
	return r, nil
}

// RunOptions tune a single batch.
type RunOptions struct {
	// RunID tags recorded artifacts; required when a ledger is attached.
	RunID string
	// Jobs overrides the configured parallelism when positive.
	Jobs int
	// Force reruns inputs that already succeeded.
	Force bool
}

// Outcome is the result for one input file.
type Outcome struct {
	Input        string
	Output       string
	Status       ledger.ArtifactStatus
	Err          error
	Duration     time.Duration
	InputSize    int64
	InputModTime time.Time // zero when the input could not be stat'ed
}

// Summary aggregates a batch.
type Summary struct {
	InputDir         string
	OutputDir        string
	CreatedOutputDir bool
	Outcomes         []Outcome
	Succeeded        int
	Failed           int
	Skipped          int
}

// OutputName maps an input file name to its solver output name.
func OutputName(prefix, input, ext string) string {
	stem := filepath.Base(input)
	if idx := strings.Index(stem, "."); idx >= 0 {
		stem = stem[:idx]
	}
	return prefix + stem + ext
}

// Run solves every regular file in inputDir, writing results into outputDir.
// Only an unusable directory or cancellation returns an error; per-file
// failures are reported in the summary.
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string, opts RunOptions) (*Summary, error) {
	logger := logging.WithContext(ctx, r.logger)
	summary := &Summary{InputDir: inputDir, OutputDir: outputDir}

	if r.ledger != nil && strings.TrimSpace(opts.RunID) == "" {
		return summary, errors.New("run id required when recording to the ledger")
	}
	inputs, err := listInputs(inputDir)
	if err != nil {
		return summary, err
	}
	created, err := fileutil.EnsureDir(outputDir)
	if err != nil {
		return summary, fmt.Errorf("prepare output directory: %w", err)
	}
	if created {
		summary.CreatedOutputDir = true
		logger.Info("output directory created", logging.String(logging.FieldPath, outputDir))
	}

	jobs := r.jobs
	if opts.Jobs > 0 {
		jobs = opts.Jobs
	}
	logger.Info("solver batch starting",
		logging.Int("inputs", len(inputs)),
		logging.Int("jobs", jobs),
		logging.Bool("force", opts.Force),
	)

	summary.Outcomes = make([]Outcome, len(inputs))
	var recordMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, input := range inputs {
		output := filepath.Join(outputDir, OutputName(r.prefix, input, r.ext))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := r.solveOne(gctx, logger, input, output, opts)
			summary.Outcomes[i] = outcome
			if r.ledger != nil {
				recordMu.Lock()
				defer recordMu.Unlock()
				r.record(gctx, logger, opts.RunID, outcome)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	for _, outcome := range summary.Outcomes {
		switch outcome.Status {
		case ledger.ArtifactSucceeded:
			summary.Succeeded++
		case ledger.ArtifactFailed:
			summary.Failed++
		case ledger.ArtifactSkipped:
			summary.Skipped++
		}
	}
	logger.Info("solver batch complete",
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (r *Runner) solveOne(ctx context.Context, logger *slog.Logger, input, output string, opts RunOptions) Outcome {
	outcome := Outcome{Input: input, Output: output}
	if info, err := os.Stat(input); err == nil {
		outcome.InputSize = info.Size()
		outcome.InputModTime = info.ModTime()
	}

	if !opts.Force && r.upToDate(ctx, logger, outcome) {
		outcome.Status = ledger.ArtifactSkipped
		logger.Info("output up to date; skipping", logging.String(logging.FieldPath, input))
		return outcome
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	started := time.Now()
	logger.Info("running solver", logging.String(logging.FieldPath, input), logging.String("output", output))
	err := r.exec.Run(runCtx, r.binary, []string{input, output}, func(line string) {
		logger.Debug("solver output", logging.String(logging.FieldPath, input), logging.String("line", line))
	})
	outcome.Duration = time.Since(started)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		outcome.Status = ledger.ArtifactFailed
		outcome.Err = err
		logging.WarnWithContext(logger, "solver failed for input", "solver_failed",
			logging.String(logging.FieldPath, input),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the solver by hand on this input to inspect its output"),
			logging.String(logging.FieldImpact, "no solution written for this input"),
		)
		return outcome
	}
	outcome.Status = ledger.ArtifactSucceeded
	logger.Info("solver finished",
		logging.String(logging.FieldPath, input),
		logging.Duration("elapsed", outcome.Duration),
	)
	return outcome
}

// upToDate reports whether a previous run solved this exact input: the ledger
// holds a success whose input fingerprint matches the current file, and the
// output still exists.
func (r *Runner) upToDate(ctx context.Context, logger *slog.Logger, outcome Outcome) bool {
	if r.ledger == nil || outcome.InputModTime.IsZero() {
		return false
	}
	prior, err := r.ledger.LastSuccess(ctx, outcome.Input, outcome.Output)
	if err != nil {
		logger.Debug("ledger lookup failed; solving anyway", logging.String(logging.FieldPath, outcome.Input), logging.Error(err))
		return false
	}
	if prior == nil {
		return false
	}
	if !prior.MatchesInput(outcome.InputSize, outcome.InputModTime) {
		logger.Info("input changed since last solve", logging.String(logging.FieldPath, outcome.Input))
		return false
	}
	info, err := os.Stat(outcome.Output)
	return err == nil && info.Mode().IsRegular()
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, runID string, outcome Outcome) {
	artifact := ledger.Artifact{
		RunID:        runID,
		Input:        outcome.Input,
		Output:       outcome.Output,
		Status:       outcome.Status,
		InputSize:    outcome.InputSize,
		InputModTime: outcome.InputModTime,
	}
	switch {
	case outcome.Err != nil:
		artifact.Detail = outcome.Err.Error()
	case outcome.Status == ledger.ArtifactSkipped:
		artifact.Detail = "output up to date"
	}
	if err := r.ledger.RecordArtifact(ctx, artifact); err != nil {
		logging.WarnWithContext(logger, "failed to record solver artifact", "ledger_write_failed",
			logging.String(logging.FieldPath, outcome.Input),
			logging.Error(err),
			logging.String(logging.FieldImpact, "resume will rerun this input"),
		)
	}
}

// listInputs returns the regular files of dir, sorted by name.
func listInputs(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInputPath, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidInputPath, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var inputs []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		inputs = append(inputs, filepath.Join(dir, entry.Name()))
	}
	return inputs, nil
}
