package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"meshbatch/internal/ledger"
	"meshbatch/internal/scene"
)

func newScenesCommand(ctx *commandContext) *cobra.Command {
	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "Group mesh files by scene and write scene documents",
	}
	scenesCmd.AddCommand(newScenesBuildCommand(ctx))
	scenesCmd.AddCommand(newScenesListCommand(ctx))
	return scenesCmd
}

func newScenesBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		policyFlag string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "build <objDir> <xmlDir>",
		Short: "Write one scene document per scene index",
		Long: "Parse interface, solid and debris mesh names in objDir, group them by\n" +
			"scene index and write one XML scene document per scene into xmlDir.\n" +
			"xmlDir is created when missing. With --watch the command keeps running\n" +
			"and rebuilds after new meshes land until interrupted.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.batch(cmd, "scenes build")
			if err != nil {
				return err
			}
			opts := []scene.Option{scene.WithLogger(env.logger)}
			if strings.TrimSpace(policyFlag) != "" {
				policy, err := scene.ParsePolicy(policyFlag)
				if err != nil {
					return err
				}
				opts = append(opts, scene.WithPolicy(policy))
			}
			builder, err := scene.NewBuilder(env.cfg, opts...)
			if err != nil {
				return err
			}

			inputDir, outputDir := args[0], args[1]
			buildOnce := func(context.Context) error {
				return buildScenes(cmd.OutOrStdout(), env, builder, inputDir, outputDir)
			}
			if watch {
				return builder.Watch(env.ctx, inputDir, scene.DefaultWatchDebounce, buildOnce)
			}
			return buildOnce(env.ctx)
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "", "Scene emission policy: occurred or dense (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and rebuild whenever meshes in objDir change")
	return cmd
}

func buildScenes(out io.Writer, env *batchEnv, builder *scene.Builder, inputDir, outputDir string) error {
	run := env.beginRun("scenes build", inputDir, outputDir)
	report, buildErr := builder.Build(env.ctx, inputDir, outputDir)
	recordSceneReport(env, run, report)
	run.finish(env.ctx, buildErr)
	if buildErr != nil {
		return buildErr
	}

	fmt.Fprintf(out, "Scene documents written: %d (policy %s)\n", len(report.Written), report.Policy)
	if report.DenseFallback {
		fmt.Fprintf(out, "Dense output skipped: scene index exceeds scenes.max_dense_scenes (%d)\n", env.cfg.Scenes.MaxDenseScenes)
	}
	if report.CreatedOutputDir {
		fmt.Fprintf(out, "Created output directory %s\n", outputDir)
	}
	fmt.Fprintf(out, "Meshes parsed: %d of %d (%d ignored)\n", report.Parsed, report.Candidates, len(report.Ignored))
	if n := len(report.Failures); n > 0 {
		fmt.Fprintf(out, "Unparseable mesh names: %d\n", n)
	}
	if n := len(report.Duplicates); n > 0 {
		fmt.Fprintf(out, "Duplicate role assignments: %d (later file kept)\n", n)
	}
	if n := len(report.WriteFailures); n > 0 {
		fmt.Fprintf(out, "Documents not written: %d\n", n)
	}
	if id := run.id(); id != "" {
		fmt.Fprintf(out, "Run: %s\n", shortID(id))
	}
	return nil
}

func recordSceneReport(env *batchEnv, run *trackedRun, report *scene.Report) {
	if report == nil {
		return
	}
	for _, w := range report.Written {
		run.record(env.ctx, ledger.Artifact{Input: report.InputDir, Output: w.Path, Status: ledger.ArtifactSucceeded})
	}
	for _, f := range report.WriteFailures {
		run.record(env.ctx, ledger.Artifact{Input: report.InputDir, Output: f.Path, Status: ledger.ArtifactFailed, Detail: f.Err.Error()})
	}
	for _, f := range report.Failures {
		run.record(env.ctx, ledger.Artifact{Input: f.Path, Status: ledger.ArtifactSkipped, Detail: f.Error()})
	}
}

func newScenesListCommand(ctx *commandContext) *cobra.Command {
	var policyFlag string

	cmd := &cobra.Command{
		Use:   "list <objDir>",
		Short: "Show how meshes group into scenes without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.batch(cmd, "scenes list")
			if err != nil {
				return err
			}
			opts := []scene.Option{scene.WithLogger(env.logger)}
			if strings.TrimSpace(policyFlag) != "" {
				policy, err := scene.ParsePolicy(policyFlag)
				if err != nil {
					return err
				}
				opts = append(opts, scene.WithPolicy(policy))
			}
			builder, err := scene.NewBuilder(env.cfg, opts...)
			if err != nil {
				return err
			}
			groups, report, err := builder.Scan(env.ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "No scenes found")
				return nil
			}
			naming := scene.NamingFromConfig(env.cfg.Scenes)
			tbl := newCLITable(
				tableColumn{Title: "Scene", Right: true},
				tableColumn{Title: roleLabel(scene.RoleInterface)},
				tableColumn{Title: roleLabel(scene.RoleSolid)},
				tableColumn{Title: roleLabel(scene.RoleDebris), Right: true},
				tableColumn{Title: "Document"},
			)
			var debris int
			for _, g := range groups {
				tbl.addRow(
					strconv.Itoa(g.Index),
					refName(g.Interface),
					refName(g.Solid),
					strconv.Itoa(len(g.Debris)),
					naming.Name(g.Index),
				)
				debris += len(g.Debris)
			}
			tbl.setTotals("Total", "", "", strconv.Itoa(debris), plural(len(groups), "document"))
			fmt.Fprintln(out, tbl.render())
			if report.DenseFallback {
				fmt.Fprintf(out, "Dense listing skipped: scene index exceeds scenes.max_dense_scenes (%d)\n", env.cfg.Scenes.MaxDenseScenes)
			}
			fmt.Fprintf(out, "%d scenes from %d meshes (%d ignored, %d unparseable)\n",
				len(groups), report.Parsed, len(report.Ignored), len(report.Failures))
			return nil
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "", "Scene emission policy: occurred or dense (default from config)")
	return cmd
}

func refName(ref *scene.MeshFileRef) string {
	if ref == nil {
		return "-"
	}
	return filepath.Base(ref.Path)
}
