package meshconv_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"meshbatch/internal/meshconv"
	"meshbatch/internal/testsupport"
)

type stubExecutor struct {
	lines  []string
	err    error
	binary string
	args   [][]string
	create []string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.binary = binary
	s.args = append(s.args, append([]string(nil), args...))
	for _, line := range s.lines {
		onLine(line)
	}
	for _, path := range s.create {
		if err := os.WriteFile(path, []byte("mesh"), 0o644); err != nil {
			return err
		}
	}
	return s.err
}

func TestParseDirection(t *testing.T) {
	cases := map[string]meshconv.Direction{
		"":        meshconv.STLToOBJ,
		"stl2obj": meshconv.STLToOBJ,
		"OBJ2STL": meshconv.OBJToSTL,
	}
	for input, want := range cases {
		got, err := meshconv.ParseDirection(input)
		if err != nil || got != want {
			t.Fatalf("ParseDirection(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := meshconv.ParseDirection("ply2obj"); err == nil {
		t.Fatal("expected error for unknown direction")
	}
	if meshconv.STLToOBJ.Reverse() != meshconv.OBJToSTL || meshconv.OBJToSTL.SourceExt() != ".obj" {
		t.Fatal("unexpected direction helpers")
	}
}

func TestFrameOf(t *testing.T) {
	frame, err := meshconv.FrameOf("/meshes/interface_000042.stl")
	if err != nil || frame != 42 {
		t.Fatalf("FrameOf = %d, %v; want 42", frame, err)
	}
	for _, name := range []string{"surface.stl", "mesh_abc.stl"} {
		if _, err := meshconv.FrameOf(name); !errors.Is(err, meshconv.ErrNoFrame) {
			t.Fatalf("FrameOf(%q): expected ErrNoFrame, got %v", name, err)
		}
	}
}

func TestFrameRangeValidate(t *testing.T) {
	if err := meshconv.AllFrames().Validate(); err != nil {
		t.Fatalf("AllFrames should validate: %v", err)
	}
	if err := (meshconv.FrameRange{Start: 10, End: 2}).Validate(); err == nil {
		t.Fatal("expected error for inverted range")
	}
	r := meshconv.FrameRange{Start: 2, End: 4}
	if !r.Contains(2) || !r.Contains(4) || r.Contains(5) {
		t.Fatal("range bounds should be inclusive")
	}
}

func TestListSourcesFiltersByExtensionAndFrame(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir,
		"interface_000001.stl",
		"interface_000002.stl",
		"interface_000005.stl",
		"solid_000003.STL",
		"solid_000003.obj",
		"notes.txt",
	)

	all, err := meshconv.ListSources(dir, meshconv.STLToOBJ, meshconv.AllFrames())
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	want := []string{"interface_000001.stl", "interface_000002.stl", "interface_000005.stl", "solid_000003.STL"}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("all sources (-want +got):\n%s", diff)
	}

	ranged, err := meshconv.ListSources(dir, meshconv.STLToOBJ, meshconv.FrameRange{Start: 2, End: 3})
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	want = []string{"interface_000002.stl", "solid_000003.STL"}
	if diff := cmp.Diff(want, ranged); diff != "" {
		t.Fatalf("ranged sources (-want +got):\n%s", diff)
	}

	reverse, err := meshconv.ListSources(dir, meshconv.OBJToSTL, meshconv.AllFrames())
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if diff := cmp.Diff([]string{"solid_000003.obj"}, reverse); diff != "" {
		t.Fatalf("reverse sources (-want +got):\n%s", diff)
	}
}

func TestListSourcesRejectsMissingDir(t *testing.T) {
	_, err := meshconv.ListSources(filepath.Join(t.TempDir(), "missing"), meshconv.STLToOBJ, meshconv.AllFrames())
	if !errors.Is(err, meshconv.ErrInvalidInputPath) {
		t.Fatalf("expected ErrInvalidInputPath, got %v", err)
	}
}

func TestTargetNameStopsAtFirstDot(t *testing.T) {
	if got := meshconv.TargetName("frame_0001.v2.stl", meshconv.STLToOBJ); got != "frame_0001.obj" {
		t.Fatalf("TargetName = %q", got)
	}
}

func TestScriptUsesDirectionOperators(t *testing.T) {
	script := string(meshconv.Script("/in", "/out", []string{"a_1.stl"}, meshconv.STLToOBJ))
	for _, want := range []string{
		"import bpy",
		`("/in/a_1.stl", "/out/a_1.obj")`,
		"bpy.ops.import_mesh.stl(filepath=source)",
		"bpy.ops.export_scene.obj(filepath=target)",
		`bpy.ops.object.select_all(action="SELECT")`,
	} {
		if !strings.Contains(script, want) {
			t.Fatalf("script missing %q:\n%s", want, script)
		}
	}

	reverse := string(meshconv.Script("/in", "/out", []string{"a_1.obj"}, meshconv.OBJToSTL))
	if !strings.Contains(reverse, "bpy.ops.import_scene.obj") || !strings.Contains(reverse, "bpy.ops.export_mesh.stl") {
		t.Fatalf("reverse script uses wrong operators:\n%s", reverse)
	}
}

func TestScriptQuotesPaths(t *testing.T) {
	script := string(meshconv.Script(`/in/it's "odd"`, "/out", []string{"a_1.stl"}, meshconv.STLToOBJ))
	if !strings.Contains(script, `"/in/it's \"odd\"/a_1.stl"`) {
		t.Fatalf("path not quoted as a Python literal:\n%s", script)
	}
}

func TestScriptKeepsNonUTF8NamesAsBytes(t *testing.T) {
	name := "caf\xe9_1.stl"
	script := string(meshconv.Script("/in", "/out", []string{name}, meshconv.STLToOBJ))
	for _, want := range []string{
		"import os",
		`(os.fsdecode(b"/in/caf\xe9_1.stl"), os.fsdecode(b"/out/caf\xe9_1.obj"))`,
	} {
		if !strings.Contains(script, want) {
			t.Fatalf("script missing %q:\n%s", want, script)
		}
	}

	plain := string(meshconv.Script("/in", "/out", []string{"café_1.stl"}, meshconv.STLToOBJ))
	if !strings.Contains(plain, `("/in/café_1.stl", "/out/café_1.obj")`) {
		t.Fatalf("valid UTF-8 names should stay str literals:\n%s", plain)
	}
}

func TestPrepareWritesScriptAndCreatesOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "obj")
	testsupport.WriteFiles(t, in, "interface_000001.stl", "interface_000009.stl", "surface.stl")

	conv, err := meshconv.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scriptPath := filepath.Join(t.TempDir(), "convert.py")
	plan, err := conv.Prepare(context.Background(), in, out, meshconv.FrameRange{Start: 0, End: 5}, scriptPath)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !plan.CreatedOutputDir {
		t.Fatal("expected output directory to be created")
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Fatalf("output dir missing: %v", err)
	}
	want := []meshconv.Pair{{Source: filepath.Join(in, "interface_000001.stl"), Target: filepath.Join(out, "interface_000001.obj")}}
	if diff := cmp.Diff(want, plan.Pairs); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"surface.stl"}, plan.Unparsed); diff != "" {
		t.Fatalf("unparsed (-want +got):\n%s", diff)
	}
	body, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if !strings.Contains(string(body), "interface_000001.stl") || strings.Contains(string(body), "interface_000009.stl") {
		t.Fatalf("script lists wrong meshes:\n%s", body)
	}
}

func TestPrepareDefaultsScriptName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := t.TempDir()
	work := t.TempDir()
	t.Chdir(work)

	conv, err := meshconv.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plan, err := conv.Prepare(context.Background(), in, t.TempDir(), meshconv.AllFrames(), "")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if filepath.Base(plan.ScriptPath) != cfg.Convert.ScriptName {
		t.Fatalf("expected default script name, got %s", plan.ScriptPath)
	}
	if _, err := os.Stat(filepath.Join(work, cfg.Convert.ScriptName)); err != nil {
		t.Fatalf("script not written to working directory: %v", err)
	}
}

func TestRunInvokesBlenderInBackground(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := t.TempDir()
	out := t.TempDir()
	testsupport.WriteFiles(t, in, "interface_000001.stl", "solid_000001.stl")

	exec := &stubExecutor{lines: []string{"Blender 4.1", "converted"}, create: []string{filepath.Join(out, "interface_000001.obj")}}
	conv, err := meshconv.New(cfg, meshconv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scriptPath := filepath.Join(t.TempDir(), "convert.py")
	plan, err := conv.Prepare(context.Background(), in, out, meshconv.AllFrames(), scriptPath)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := conv.Run(context.Background(), plan.ScriptPath); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exec.binary != cfg.Convert.BlenderBinary {
		t.Fatalf("expected %s, got %s", cfg.Convert.BlenderBinary, exec.binary)
	}
	if diff := cmp.Diff([][]string{{"-b", "--python", scriptPath}}, exec.args); diff != "" {
		t.Fatalf("args (-want +got):\n%s", diff)
	}

	outcomes := plan.CheckOutputs()
	if len(outcomes) != 2 || !outcomes[0].Exported || outcomes[1].Exported {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestRunWrapsExecutorError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	scriptPath := filepath.Join(t.TempDir(), "convert.py")
	if err := os.WriteFile(scriptPath, []byte("import bpy\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	conv, err := meshconv.New(cfg, meshconv.WithExecutor(&stubExecutor{err: boom}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := conv.Run(context.Background(), scriptPath); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped executor error, got %v", err)
	}
	if err := conv.Run(context.Background(), filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Fatal("expected error for missing script")
	}
}
