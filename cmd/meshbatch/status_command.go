package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"meshbatch/internal/deps"
	"meshbatch/internal/ledger"
	"meshbatch/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 20

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, external tools and state directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := &statusReport{colorize: shouldColorize(out)}

			report.section("Configuration")
			if ctx.configExists {
				report.line("Config file", statusOK, ctx.configPath)
			} else {
				report.line("Config file", statusInfo, "defaults (no file at "+ctx.configPath+")")
			}
			report.line("Scene policy", statusInfo, cfg.Scenes.Policy)
			report.line("Dense limit", statusInfo, fmt.Sprintf("%d scenes", cfg.Scenes.MaxDenseScenes))
			report.line("Solver jobs", statusInfo, fmt.Sprint(cfg.Solver.Jobs))

			report.section("Dependencies")
			for _, status := range preflight.CheckSystemDeps(cfg) {
				kind, message := dependencyLine(status)
				report.line(status.Name, kind, message)
			}

			report.section("Directories")
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				report.line(result.Name, kind, result.Detail)
			}

			fmt.Fprintln(out, report.String())
			return nil
		},
	}
}

// statusReport accumulates sectioned check lines and counts problems for the
// closing summary.
type statusReport struct {
	colorize bool
	lines    []string
	warnings int
	errors   int
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	r.lines = append(r.lines, renderSectionHeader(title, r.colorize)...)
}

func (r *statusReport) line(label string, kind statusKind, message string) {
	switch kind {
	case statusWarn:
		r.warnings++
	case statusError:
		r.errors++
	}
	r.lines = append(r.lines, renderStatusLine(label, kind, message, r.colorize))
}

func (r *statusReport) String() string {
	var summary string
	switch {
	case r.errors > 0:
		summary = renderStatusLine("Summary", statusError,
			fmt.Sprintf("%s, %s; batch commands may fail", plural(r.errors, "error"), plural(r.warnings, "warning")), r.colorize)
	case r.warnings > 0:
		summary = renderStatusLine("Summary", statusWarn, plural(r.warnings, "warning")+"; batches can run", r.colorize)
	default:
		summary = renderStatusLine("Summary", statusOK, "ready to run batches", r.colorize)
	}
	return strings.Join(append(append([]string(nil), r.lines...), "", summary), "\n")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	return paint(fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", statusText), kind, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{paint(line, statusInfo, colorize), paint(rule, statusInfo, colorize)}
}

func paint(s string, kind statusKind, colorize bool) string {
	if !colorize {
		return s
	}
	return statusKindColor(kind) + s + ansiReset
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

// runStatusKind maps ledger run states onto the status palette so history
// tables highlight partial and failed batches.
func runStatusKind(status ledger.RunStatus) statusKind {
	switch status {
	case ledger.RunSucceeded:
		return statusOK
	case ledger.RunPartial:
		return statusWarn
	case ledger.RunFailed:
		return statusError
	default:
		return statusInfo
	}
}

func artifactStatusKind(status ledger.ArtifactStatus) statusKind {
	switch status {
	case ledger.ArtifactSucceeded:
		return statusOK
	case ledger.ArtifactFailed:
		return statusError
	default:
		return statusInfo
	}
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func dependencyLine(status deps.Status) (statusKind, string) {
	if status.Available {
		message := status.Path
		if status.Version != "" {
			message = fmt.Sprintf("%s (%s)", status.Path, status.Version)
		}
		return statusOK, message
	}
	message := status.Detail
	if status.Description != "" {
		message = fmt.Sprintf("%s (%s)", status.Detail, status.Description)
	}
	if status.Optional {
		return statusWarn, message
	}
	return statusError, message
}
