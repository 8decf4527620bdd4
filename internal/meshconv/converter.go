package meshconv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meshbatch/internal/config"
	"meshbatch/internal/fileutil"
	"meshbatch/internal/logging"
	"meshbatch/internal/procexec"
)

// Option configures the converter.
type Option func(*Converter)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(c *Converter) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger sets the logger receiving warnings and Blender output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDirection overrides the default stl2obj direction.
func WithDirection(direction Direction) Option {
	return func(c *Converter) {
		if direction != "" {
			c.direction = direction
		}
	}
}

// Converter writes Blender conversion scripts and runs them.
type Converter struct {
	binary     string
	scriptName string
	timeout    time.Duration
	direction  Direction
	exec       procexec.Executor
	logger     *slog.Logger
}

// New constructs a Converter from the [convert] section.
func New(cfg *config.Config, opts ...Option) (*Converter, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	binary := strings.TrimSpace(cfg.Convert.BlenderBinary)
	if binary == "" {
		return nil, errors.New("blender binary required")
	}
	c := &Converter{
		binary:     binary,
		scriptName: cfg.Convert.ScriptName,
		timeout:    time.Duration(cfg.Convert.Timeout) * time.Second,
		direction:  STLToOBJ,
		exec:       procexec.Command{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "convert")
	return c, nil
}

// Direction returns the conversion direction in effect.
func (c *Converter) Direction() Direction {
	return c.direction
}

// Plan describes a prepared conversion.
type Plan struct {
	Direction        Direction
	InputDir         string
	OutputDir        string
	ScriptPath       string
	Frames           FrameRange
	Pairs            []Pair
	Unparsed         []string
	CreatedOutputDir bool
}

// Prepare selects the meshes to convert and writes the Blender script. An
// empty scriptPath uses the configured script name in the working directory.
func (c *Converter) Prepare(ctx context.Context, inputDir, outputDir string, frames FrameRange, scriptPath string) (*Plan, error) {
	logger := logging.WithContext(ctx, c.logger)

	sources, unparsed, err := listSources(inputDir, c.direction, frames)
	if err != nil {
		return nil, err
	}
	for _, name := range unparsed {
		logging.WarnWithContext(logger, "mesh has no frame number; skipping", "frame_unparsed",
			logging.String(logging.FieldPath, filepath.Join(inputDir, name)),
			logging.String(logging.FieldErrorHint, "name meshes <object>_<frame>"+c.direction.SourceExt()),
			logging.String(logging.FieldImpact, "mesh excluded from the frame-range conversion"),
		)
	}

	created, err := fileutil.EnsureDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("prepare output directory: %w", err)
	}
	if created {
		logger.Info("output directory created", logging.String(logging.FieldPath, outputDir))
	}

	if strings.TrimSpace(scriptPath) == "" {
		scriptPath = c.scriptName
	}
	if scriptPath, err = filepath.Abs(scriptPath); err != nil {
		return nil, fmt.Errorf("resolve script path: %w", err)
	}

	plan := &Plan{
		Direction:        c.direction,
		InputDir:         inputDir,
		OutputDir:        outputDir,
		ScriptPath:       scriptPath,
		Frames:           frames,
		Unparsed:         unparsed,
		CreatedOutputDir: created,
	}
	for _, name := range sources {
		plan.Pairs = append(plan.Pairs, Pair{
			Source: filepath.Join(inputDir, name),
			Target: filepath.Join(outputDir, TargetName(name, c.direction)),
		})
	}

	if err := fileutil.WriteFileAtomic(scriptPath, Script(inputDir, outputDir, sources, c.direction), 0o644); err != nil {
		return nil, fmt.Errorf("write conversion script: %w", err)
	}
	logger.Info("conversion script written",
		logging.String(logging.FieldPath, scriptPath),
		logging.Int("meshes", len(plan.Pairs)),
		logging.String("direction", string(c.direction)),
	)
	return plan, nil
}

// Run executes `blender -b --python scriptPath`, logging Blender's output at
// debug level.
func (c *Converter) Run(ctx context.Context, scriptPath string) error {
	if strings.TrimSpace(scriptPath) == "" {
		return errors.New("script path required")
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return fmt.Errorf("conversion script: %w", err)
	}
	logger := logging.WithContext(ctx, c.logger)

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	args := []string{"-b", "--python", scriptPath}
	logger.Info("starting blender", logging.String("binary", c.binary), logging.String("args", strings.Join(args, " ")))
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		logger.Debug("blender", logging.String("line", line))
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("blender timed out after %s: %w", c.timeout, err)
		}
		return fmt.Errorf("blender conversion: %w", err)
	}
	logger.Info("blender finished", logging.Duration("elapsed", time.Since(started)))
	return nil
}

// Outcome is the post-run state of one planned conversion.
type Outcome struct {
	Pair
	Exported bool
}

// CheckOutputs reports which planned targets exist on disk.
func (p *Plan) CheckOutputs() []Outcome {
	outcomes := make([]Outcome, 0, len(p.Pairs))
	for _, pair := range p.Pairs {
		info, err := os.Stat(pair.Target)
		outcomes = append(outcomes, Outcome{Pair: pair, Exported: err == nil && !info.IsDir()})
	}
	return outcomes
}
