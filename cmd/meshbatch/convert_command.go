package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"meshbatch/internal/ledger"
	"meshbatch/internal/meshconv"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		reverse    bool
		scriptPath string
		runBlender bool
	)

	cmd := &cobra.Command{
		Use:   "convert <srcDir> <dstDir> [startFrame endFrame]",
		Short: "Generate (and optionally run) a Blender STL/OBJ conversion script",
		Long: "Select the STL meshes in srcDir, optionally restricted to an inclusive\n" +
			"frame range, and write a Blender Python script exporting each one as OBJ\n" +
			"into dstDir. With --reverse, OBJ meshes are exported as STL instead.\n" +
			"With --run, Blender is started in background mode on the script.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 && len(args) != 4 {
				return fmt.Errorf("expected <srcDir> <dstDir> [startFrame endFrame], got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			frames := meshconv.AllFrames()
			if len(args) == 4 {
				start, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("start frame %q: %w", args[2], err)
				}
				end, err := strconv.Atoi(args[3])
				if err != nil {
					return fmt.Errorf("end frame %q: %w", args[3], err)
				}
				frames = meshconv.FrameRange{Start: start, End: end}
				if err := frames.Validate(); err != nil {
					return err
				}
			}

			env, err := ctx.batch(cmd, "convert")
			if err != nil {
				return err
			}
			direction := meshconv.STLToOBJ
			if reverse {
				direction = meshconv.OBJToSTL
			}
			converter, err := meshconv.New(env.cfg, meshconv.WithLogger(env.logger), meshconv.WithDirection(direction))
			if err != nil {
				return err
			}

			srcDir, dstDir := args[0], args[1]
			plan, err := converter.Prepare(env.ctx, srcDir, dstDir, frames, scriptPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Conversion script: %s (%d meshes, %s)\n", plan.ScriptPath, len(plan.Pairs), plan.Direction)
			if plan.CreatedOutputDir {
				fmt.Fprintf(out, "Created output directory %s\n", dstDir)
			}
			if n := len(plan.Unparsed); n > 0 {
				fmt.Fprintf(out, "Skipped %d meshes without a frame number\n", n)
			}
			if !runBlender {
				fmt.Fprintf(out, "Run it with: %s -b --python %s\n", env.cfg.Convert.BlenderBinary, plan.ScriptPath)
				return nil
			}

			run := env.beginRun("convert", srcDir, dstDir)
			runErr := converter.Run(env.ctx, plan.ScriptPath)
			exported := 0
			if runErr == nil {
				for _, outcome := range plan.CheckOutputs() {
					artifact := ledger.Artifact{Input: outcome.Source, Output: outcome.Target, Status: ledger.ArtifactSucceeded}
					if outcome.Exported {
						exported++
					} else {
						artifact.Status = ledger.ArtifactFailed
						artifact.Detail = "blender produced no output"
					}
					run.record(env.ctx, artifact)
				}
			}
			run.finish(env.ctx, runErr)
			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(out, "Converted %d of %d meshes\n", exported, len(plan.Pairs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reverse, "reverse", false, "Convert OBJ meshes to STL instead of STL to OBJ")
	cmd.Flags().StringVar(&scriptPath, "script", "", "Where to write the Blender script (default: convert.script_name in the working directory)")
	cmd.Flags().BoolVar(&runBlender, "run", false, "Run Blender on the generated script")
	return cmd
}
