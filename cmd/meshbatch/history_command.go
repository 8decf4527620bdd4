package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"meshbatch/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				return printRunDetail(cmd.Context(), out, store, runID)
			}
			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			colorize := shouldColorize(out)
			tbl := newCLITable(
				tableColumn{Title: "ID"},
				tableColumn{Title: "Command"},
				tableColumn{Title: "Status"},
				tableColumn{Title: "Started"},
				tableColumn{Title: "Duration", Right: true},
				tableColumn{Title: "OK", Right: true},
				tableColumn{Title: "Failed", Right: true},
				tableColumn{Title: "Skipped", Right: true},
			)
			var succeeded, failed, skipped int
			for _, r := range runs {
				tbl.addRow(
					shortID(r.ID),
					r.Command,
					paint(titleLabel(string(r.Status)), runStatusKind(r.Status), colorize),
					formatStarted(r.StartedAt),
					formatDuration(r.Duration()),
					strconv.Itoa(r.Succeeded),
					strconv.Itoa(r.Failed),
					strconv.Itoa(r.Skipped),
				)
				succeeded += r.Succeeded
				failed += r.Failed
				skipped += r.Skipped
			}
			tbl.setTotals("", plural(len(runs), "run"), "", "", "Total",
				strconv.Itoa(succeeded), strconv.Itoa(failed), strconv.Itoa(skipped))
			fmt.Fprintln(out, tbl.render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the artifacts of one run (full id or unique prefix)")
	return cmd
}

func printRunDetail(ctx context.Context, out io.Writer, store *ledger.Store, idOrPrefix string) error {
	run, err := store.FindRun(ctx, idOrPrefix)
	if err != nil {
		return err
	}
	artifacts, err := store.Artifacts(ctx, run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Command:  %s\n", run.Command)
	fmt.Fprintf(out, "Status:   %s\n", titleLabel(string(run.Status)))
	fmt.Fprintf(out, "Input:    %s\n", run.InputDir)
	fmt.Fprintf(out, "Output:   %s\n", run.OutputDir)
	fmt.Fprintf(out, "Started:  %s\n", formatStarted(run.StartedAt))
	fmt.Fprintf(out, "Duration: %s\n", formatDuration(run.Duration()))
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	if len(artifacts) == 0 {
		fmt.Fprintln(out, "No artifacts recorded")
		return nil
	}
	colorize := shouldColorize(out)
	tbl := newCLITable(
		tableColumn{Title: "Status"},
		tableColumn{Title: "Input"},
		tableColumn{Title: "Output"},
		tableColumn{Title: "Detail"},
	)
	for _, a := range artifacts {
		tbl.addRow(
			paint(titleLabel(string(a.Status)), artifactStatusKind(a.Status), colorize),
			baseOrDash(a.Input),
			baseOrDash(a.Output),
			a.Detail,
		)
	}
	tbl.setTotals(plural(len(artifacts), "artifact"))
	fmt.Fprintln(out, tbl.render())
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func baseOrDash(path string) string {
	if path == "" {
		return "-"
	}
	return filepath.Base(path)
}

func formatStarted(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
