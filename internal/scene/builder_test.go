package scene_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meshbatch/internal/config"
	"meshbatch/internal/fileutil"
	"meshbatch/internal/scene"
)

func writeMeshes(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("o mesh\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func newBuilder(t *testing.T, mutate func(*config.Config), opts ...scene.Option) *scene.Builder {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := scene.NewBuilder(&cfg, opts...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestBuildSingleScene(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "xml")
	writeMeshes(t, in,
		"interface_000003.obj",
		"solid_000003.obj",
		"garbage_00_000003.obj",
		"garbage_01_000003.obj",
		"unknown_procedural_mesh.obj",
		"notes.txt",
	)

	report, err := newBuilder(t, nil).Build(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !report.CreatedOutputDir {
		t.Fatal("expected output directory to be created")
	}
	if len(report.Written) != 1 || report.Written[0].Index != 3 || report.Written[0].Shapes != 4 {
		t.Fatalf("unexpected written documents: %+v", report.Written)
	}
	if len(report.Ignored) != 1 || !strings.HasSuffix(report.Ignored[0], "unknown_procedural_mesh.obj") {
		t.Fatalf("expected unrelated mesh to be ignored: %v", report.Ignored)
	}
	if report.Candidates != 5 {
		t.Fatalf("expected 5 .obj candidates, got %d", report.Candidates)
	}

	body, err := os.ReadFile(filepath.Join(out, "out000003.xml"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	want := wantHeader +
		wantShape(filepath.Join(in, "interface_000003.obj"), "1.333") +
		wantShape(filepath.Join(in, "solid_000003.obj"), "1.333") +
		wantShape(filepath.Join(in, "garbage_00_000003.obj"), "1.333") +
		wantShape(filepath.Join(in, "garbage_01_000003.obj"), "1.333") +
		"</scene>"
	if string(body) != want {
		t.Fatalf("document mismatch\n got: %q\nwant: %q", body, want)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	var xmls []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".xml" {
			xmls = append(xmls, e.Name())
		}
	}
	if len(xmls) != 1 {
		t.Fatalf("expected exactly one document, got %v", xmls)
	}
}

func TestBuildEmbedsInputDirAsGiven(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "a", "objs"), 0o755); err != nil {
		t.Fatal(err)
	}
	in := base + "/a/../a/./objs/"
	writeMeshes(t, filepath.Join(base, "a", "objs"), "interface_000003.obj")
	out := t.TempDir()

	if _, err := newBuilder(t, nil).Build(context.Background(), in, out); err != nil {
		t.Fatalf("Build: %v", err)
	}
	body, err := os.ReadFile(filepath.Join(out, "out000003.xml"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	want := `value="` + in + `interface_000003.obj"`
	if !strings.Contains(string(body), want) {
		t.Fatalf("document should embed %s, got:\n%s", want, body)
	}

	// Without a trailing separator one is added.
	groups, _, err := newBuilder(t, nil).Scan(context.Background(), strings.TrimSuffix(in, "/"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := groups[0].Interface.Path; got != in+"interface_000003.obj" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestBuildDensePolicy(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeMeshes(t, in, "interface_000003.obj", "solid_000003.obj", "garbage_00_000003.obj", "garbage_01_000003.obj")

	b := newBuilder(t, nil, scene.WithPolicy(scene.PolicyDense))
	report, err := b.Build(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.Written) != 4 {
		t.Fatalf("expected documents for scenes 0..3, got %d", len(report.Written))
	}
	empty, err := os.ReadFile(filepath.Join(out, "out000001.xml"))
	if err != nil {
		t.Fatalf("read placeholder: %v", err)
	}
	if string(empty) != wantHeader+"</scene>" {
		t.Fatalf("expected empty placeholder document, got %q", empty)
	}
}

func TestBuildDenseFallsBackPastLimit(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeMeshes(t, in, "interface_000003.obj", "interface_999999999999.obj")

	b := newBuilder(t, func(cfg *config.Config) {
		cfg.Scenes.MaxDenseScenes = 1000
	}, scene.WithPolicy(scene.PolicyDense))
	report, err := b.Build(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !report.DenseFallback || report.Policy != scene.PolicyOccurred {
		t.Fatalf("expected occurred fallback, got policy %q fallback=%v", report.Policy, report.DenseFallback)
	}
	if len(report.Written) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(report.Written))
	}
	if _, err := os.Stat(filepath.Join(out, "out999999999999.xml")); err != nil {
		t.Fatalf("expected document for the large index: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "out000000.xml")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("no placeholder documents expected, stat err = %v", err)
	}
}

func TestBuildWarnsAndContinues(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeMeshes(t, in,
		"interface_000001.obj",
		"garbage_000002.obj",
		"smoothedInterface_000001.obj",
		"solid_00x2.obj",
		"solid_000002.obj",
	)

	report, err := newBuilder(t, nil).Build(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 parse failures, got %d: %v", len(report.Failures), report.Failures)
	}
	if len(report.Duplicates) != 1 {
		t.Fatalf("expected one duplicate, got %+v", report.Duplicates)
	}
	dup := report.Duplicates[0]
	if dup.Scene != 1 || dup.Role != scene.RoleInterface {
		t.Fatalf("unexpected duplicate: %+v", dup)
	}
	if !strings.HasSuffix(dup.Kept, "smoothedInterface_000001.obj") || !strings.HasSuffix(dup.Replaced, "interface_000001.obj") {
		t.Fatalf("expected later file in listing order to win: %+v", dup)
	}
	if len(report.Written) != 2 {
		t.Fatalf("expected scenes 1 and 2 to be written, got %+v", report.Written)
	}
}

func TestBuildMissingInputIsFatal(t *testing.T) {
	out := t.TempDir()
	_, err := newBuilder(t, nil).Build(context.Background(), filepath.Join(t.TempDir(), "missing"), out)
	if !errors.Is(err, scene.ErrInvalidInputPath) {
		t.Fatalf("expected ErrInvalidInputPath, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected underlying not-exist error, got %v", err)
	}
	var pathErr *scene.InputPathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *InputPathError, got %T", err)
	}
}

func TestBuildRefusesLockedOutput(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeMeshes(t, in, "interface_000001.obj")

	lock, err := fileutil.LockDirectory(out)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := newBuilder(t, nil).Build(context.Background(), in, out); !errors.Is(err, fileutil.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestBuildHonoursCancellation(t *testing.T) {
	in := t.TempDir()
	writeMeshes(t, in, "interface_000001.obj")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newBuilder(t, nil).Build(ctx, in, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScanUsesConfiguredVocabulary(t *testing.T) {
	in := t.TempDir()
	writeMeshes(t, in, "air_000002.obj", "body_000002.obj", "interface_000002.obj")

	b := newBuilder(t, func(c *config.Config) {
		c.Scenes.InterfaceTokens = []string{"air"}
		c.Scenes.SolidTokens = []string{"body"}
	})
	groups, report, err := b.Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(groups) != 1 || groups[0].Interface == nil || groups[0].Solid == nil {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if len(report.Ignored) != 1 {
		t.Fatalf("expected default token to be ignored under custom vocabulary: %v", report.Ignored)
	}
}
