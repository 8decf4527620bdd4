package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"meshbatch/internal/config"
	"meshbatch/internal/ledger"
	"meshbatch/internal/logging"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) configFlag() string {
	if c.flags == nil {
		return ""
	}
	return strings.TrimSpace(c.flags.configPath)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configFlag())
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if c.flags != nil {
			if level := strings.TrimSpace(c.flags.logLevel); level != "" {
				cfg.Logging.Level = level
			}
			if format := strings.TrimSpace(c.flags.logFormat); format != "" {
				cfg.Logging.Format = format
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger on first use. Console output goes to
// the command's stderr so stdout stays reserved for reports.
func (c *commandContext) ensureLogger(console io.Writer) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg, console)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logging: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// batchEnv is what a batch subcommand needs to start working.
type batchEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	ctx    context.Context
}

func (c *commandContext) batch(cmd *cobra.Command, command string) (*batchEnv, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	ctx := logging.WithCommand(cmd.Context(), command)
	return &batchEnv{cfg: cfg, logger: logger, ctx: ctx}, nil
}

// trackedRun ties a batch command to a ledger run. A nil store disables
// recording; every method is safe on a run without a store.
type trackedRun struct {
	store  *ledger.Store
	run    *ledger.Run
	logger *slog.Logger
}

// beginRun opens the ledger and starts a run. Ledger problems are logged and
// the command proceeds without history.
func (e *batchEnv) beginRun(command, inputDir, outputDir string) *trackedRun {
	tr := &trackedRun{logger: e.logger}
	store, err := ledger.Open(e.cfg)
	if err != nil {
		logging.WarnWithContext(e.logger, "run ledger unavailable; history will not be recorded", "ledger_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `meshbatch status` to inspect the ledger"),
			logging.String(logging.FieldImpact, "this run is missing from history and cannot be resumed"),
		)
		return tr
	}
	run, err := store.BeginRun(e.ctx, command, inputDir, outputDir)
	if err != nil {
		_ = store.Close()
		logging.WarnWithContext(e.logger, "could not start ledger run", "ledger_write_failed", logging.Error(err))
		return tr
	}
	tr.store = store
	tr.run = run
	e.ctx = logging.WithRunID(e.ctx, run.ID)
	return tr
}

func (t *trackedRun) id() string {
	if t == nil || t.run == nil {
		return ""
	}
	return t.run.ID
}

func (t *trackedRun) record(ctx context.Context, artifact ledger.Artifact) {
	if t == nil || t.store == nil {
		return
	}
	artifact.RunID = t.run.ID
	if err := t.store.RecordArtifact(ctx, artifact); err != nil {
		logging.WarnWithContext(t.logger, "failed to record artifact", "ledger_write_failed",
			logging.String(logging.FieldPath, artifact.Input),
			logging.Error(err),
		)
	}
}

func (t *trackedRun) finish(ctx context.Context, runErr error) {
	if t == nil || t.store == nil {
		return
	}
	// Record the final status even after cancellation.
	if _, err := t.store.FinishRun(context.WithoutCancel(ctx), t.run.ID, runErr); err != nil {
		logging.WarnWithContext(t.logger, "failed to finish ledger run", "ledger_write_failed", logging.Error(err))
	}
	_ = t.store.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
