package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"meshbatch/internal/config"
	"meshbatch/internal/fileutil"
	"meshbatch/internal/logging"
)

// ErrInvalidInputPath marks a missing or non-directory input path.
var ErrInvalidInputPath = errors.New("invalid input path")

// InputPathError reports why the input directory cannot be used. The whole
// run fails when it occurs.
type InputPathError struct {
	Path string
	Err  error
}

func (e *InputPathError) Error() string {
	return fmt.Sprintf("%s is not a valid input path: %v", e.Path, e.Err)
}

func (e *InputPathError) Unwrap() error { return e.Err }

func (e *InputPathError) Is(target error) bool { return target == ErrInvalidInputPath }

// Duplicate records a role slot that was overwritten by a later file.
type Duplicate struct {
	Scene    int
	Role     Role
	Kept     string
	Replaced string
}

// Written records a document written to disk.
type Written struct {
	Index  int
	Path   string
	Shapes int
}

// WriteFailure records a document that could not be written.
type WriteFailure struct {
	Index int
	Path  string
	Err   error
}

// Report summarizes a scan or build.
type Report struct {
	InputDir         string
	OutputDir        string
	CreatedOutputDir bool
	Policy           Policy // emission policy actually applied
	DenseFallback    bool   // dense emission abandoned for exceeding the limit
	Candidates       int
	Parsed           int
	Ignored          []string
	Failures         []*ParseFailure
	Duplicates       []Duplicate
	Written          []Written
	WriteFailures    []WriteFailure
}

// Builder turns a mesh directory into scene documents.
type Builder struct {
	grammar    *Grammar
	renderer   Renderer
	policy     Policy
	denseLimit int
	extension  string
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithPolicy overrides the configured emission policy.
func WithPolicy(policy Policy) Option {
	return func(b *Builder) {
		if policy != "" {
			b.policy = policy
		}
	}
}

// WithLogger sets the logger used for per-file warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder constructs a Builder from the [scenes] and [template] sections.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	grammar, err := GrammarFromConfig(cfg.Scenes)
	if err != nil {
		return nil, fmt.Errorf("scene grammar: %w", err)
	}
	policy, err := ParsePolicy(cfg.Scenes.Policy)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		grammar: grammar,
		renderer: Renderer{
			Template: TemplateFromConfig(cfg.Template),
			Naming:   NamingFromConfig(cfg.Scenes),
		},
		policy:     policy,
		denseLimit: cfg.Scenes.MaxDenseScenes,
		extension:  cfg.Scenes.InputExtension,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "scenes")
	return b, nil
}

// Policy returns the configured emission policy.
func (b *Builder) Policy() Policy {
	return b.policy
}

// Scan parses and groups the meshes in inputDir without writing anything.
func (b *Builder) Scan(ctx context.Context, inputDir string) ([]SceneGroup, *Report, error) {
	report := &Report{InputDir: inputDir}
	grouper, err := b.collect(ctx, inputDir, report)
	if err != nil {
		return nil, report, err
	}
	return grouper.Groups(b.effectivePolicy(ctx, grouper, report)), report, nil
}

// Build writes one document per scene group into outputDir, creating it when
// missing. Per-file and per-scene problems are logged and recorded in the
// report; only an unusable input or output directory fails the call.
func (b *Builder) Build(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	logger := logging.WithContext(ctx, b.logger)
	report := &Report{InputDir: inputDir, OutputDir: outputDir}

	if err := checkInputDir(inputDir); err != nil {
		return report, err
	}

	created, err := fileutil.EnsureDir(outputDir)
	if err != nil {
		return report, fmt.Errorf("prepare output directory: %w", err)
	}
	if created {
		report.CreatedOutputDir = true
		logger.Info("output directory created", logging.String(logging.FieldPath, outputDir))
	}

	lock, err := fileutil.LockDirectory(outputDir)
	if err != nil {
		return report, err
	}
	defer func() { _ = lock.Unlock() }()

	grouper, err := b.collect(ctx, inputDir, report)
	if err != nil {
		return report, err
	}

	for _, group := range grouper.Groups(b.effectivePolicy(ctx, grouper, report)) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		doc := b.renderer.Render(group)
		target := filepath.Join(outputDir, doc.Name)
		if err := fileutil.WriteFileAtomic(target, doc.Body, 0o644); err != nil {
			report.WriteFailures = append(report.WriteFailures, WriteFailure{Index: doc.Index, Path: target, Err: err})
			logging.WarnWithContext(logger, "scene document not written", "scene_write_failed",
				logging.Int(logging.FieldScene, doc.Index),
				logging.String(logging.FieldPath, target),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions on the output directory"),
				logging.String(logging.FieldImpact, "this scene will be missing from the render batch"),
			)
			continue
		}
		report.Written = append(report.Written, Written{Index: doc.Index, Path: target, Shapes: doc.Shapes})
		logger.Debug("scene document written",
			logging.Int(logging.FieldScene, doc.Index),
			logging.String(logging.FieldPath, target),
			logging.Int("shapes", doc.Shapes),
		)
	}

	logger.Info("scene build complete",
		logging.Int("documents", len(report.Written)),
		logging.Int("write_failures", len(report.WriteFailures)),
		logging.Int("parse_failures", len(report.Failures)),
		logging.Int("duplicates", len(report.Duplicates)),
		logging.String("policy", string(report.Policy)),
	)
	return report, nil
}

func (b *Builder) collect(ctx context.Context, inputDir string, report *Report) (*Grouper, error) {
	logger := logging.WithContext(ctx, b.logger)

	paths, err := b.listMeshes(inputDir)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(paths)

	grouper := NewGrouper()
	grouper.SetDenseLimit(b.denseLimit)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, err := b.grammar.Parse(path)
		if err != nil {
			var failure *ParseFailure
			switch {
			case errors.Is(err, ErrUnknownRole):
				report.Ignored = append(report.Ignored, path)
				logger.Debug("ignoring unrelated file", logging.String(logging.FieldPath, path))
			case errors.As(err, &failure):
				report.Failures = append(report.Failures, failure)
				logging.WarnWithContext(logger, "mesh file name not understood; skipping", "parse_failure",
					logging.String(logging.FieldPath, path),
					logging.String("role", failure.Role.String()),
					logging.String("reason", failure.Detail),
					logging.String(logging.FieldErrorHint, "rename the file to <token>_<scene> or <token>_<sub>_<scene>"),
					logging.String(logging.FieldImpact, "mesh omitted from its scene document"),
				)
			default:
				return nil, err
			}
			continue
		}
		report.Parsed++
		if displaced := grouper.Add(ref); displaced != nil {
			report.Duplicates = append(report.Duplicates, Duplicate{
				Scene:    ref.Scene,
				Role:     ref.Role,
				Kept:     ref.Path,
				Replaced: displaced.Path,
			})
			logging.WarnWithContext(logger, "duplicate role assignment; keeping the later file", "duplicate_role_assignment",
				logging.Int(logging.FieldScene, ref.Scene),
				logging.String("role", ref.Role.String()),
				logging.String("kept", ref.Path),
				logging.String("replaced", displaced.Path),
				logging.String(logging.FieldErrorHint, "remove or rename one of the files"),
				logging.String(logging.FieldImpact, "the replaced mesh is not rendered"),
			)
		}
	}
	return grouper, nil
}

// effectivePolicy returns the configured policy unless dense emission would
// exceed the limit, in which case it warns and falls back to occurred.
func (b *Builder) effectivePolicy(ctx context.Context, grouper *Grouper, report *Report) Policy {
	report.Policy = b.policy
	if b.policy != PolicyDense || !grouper.DenseExceeded() {
		return b.policy
	}
	maxIndex, _ := grouper.Max()
	report.Policy = PolicyOccurred
	report.DenseFallback = true
	logging.WarnWithContext(logging.WithContext(ctx, b.logger), "scene index too large for dense output; writing occurred scenes only", "dense_range_too_large",
		logging.Int("max_scene", maxIndex),
		logging.Int("max_dense_scenes", b.denseLimit),
		logging.String(logging.FieldErrorHint, "check for stray mesh names or raise scenes.max_dense_scenes"),
		logging.String(logging.FieldImpact, "empty scenes get no placeholder documents"),
	)
	return PolicyOccurred
}

// listMeshes returns files in dir with the configured extension, sorted by
// name. That order is the discovery order debris references keep.
func (b *Builder) listMeshes(dir string) ([]string, error) {
	if err := checkInputDir(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &InputPathError{Path: dir, Err: err}
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), b.extension) {
			continue
		}
		paths = append(paths, joinAsGiven(dir, entry.Name()))
	}
	return paths, nil
}

// joinAsGiven appends name to dir without cleaning dir, so documents embed
// the directory exactly as the user spelled it.
func joinAsGiven(dir, name string) string {
	if strings.HasSuffix(dir, "/") || strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir + name
	}
	return dir + string(filepath.Separator) + name
}

func checkInputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return &InputPathError{Path: dir, Err: errors.New("path is empty")}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return &InputPathError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &InputPathError{Path: dir, Err: errors.New("not a directory")}
	}
	return nil
}
