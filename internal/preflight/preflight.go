package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"meshbatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and ledger checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, checkManagedDirectory("State directory", cfg.Paths.StateDir))
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		results = append(results, checkManagedDirectory("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckLedger(ctx, cfg))
	return results
}

// checkManagedDirectory accepts a directory meshbatch has not created yet,
// since the first run creates it.
func checkManagedDirectory(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first run)", path)}
	}
	return CheckDirectoryAccess(name, path)
}
