package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"meshbatch/internal/solver"
)

func newSolveCommand(ctx *commandContext) *cobra.Command {
	var (
		jobs  int
		force bool
	)

	cmd := &cobra.Command{
		Use:   "solve <inDir> <outDir>",
		Short: "Run the boundary-element solver on every file in a directory",
		Long: "Invoke the solver once per file in inDir, writing out<stem>.dat into\n" +
			"outDir. Files already solved by an earlier run are skipped unless --force.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs < 0 {
				return fmt.Errorf("--jobs must be positive")
			}
			env, err := ctx.batch(cmd, "solve")
			if err != nil {
				return err
			}

			inDir, outDir := args[0], args[1]
			run := env.beginRun("solve", inDir, outDir)
			opts := []solver.Option{solver.WithLogger(env.logger)}
			if run.store != nil {
				opts = append(opts, solver.WithLedger(run.store))
			}
			runner, err := solver.New(env.cfg, opts...)
			if err != nil {
				run.finish(env.ctx, err)
				return err
			}

			summary, runErr := runner.Run(env.ctx, inDir, outDir, solver.RunOptions{
				RunID: run.id(),
				Jobs:  jobs,
				Force: force,
			})
			run.finish(env.ctx, runErr)
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Solved: %d  Failed: %d  Skipped: %d\n", summary.Succeeded, summary.Failed, summary.Skipped)
			for _, outcome := range summary.Outcomes {
				if outcome.Err != nil {
					fmt.Fprintf(out, "  %s: %v\n", filepath.Base(outcome.Input), outcome.Err)
				}
			}
			if id := run.id(); id != "" {
				fmt.Fprintf(out, "Run: %s\n", shortID(id))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent solver processes (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-solve inputs that already have up-to-date output")
	return cmd
}
