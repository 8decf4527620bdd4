package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Scenes contains the mesh filename grammar and scene document naming.
type Scenes struct {
	Policy          string `toml:"policy"`
	InputExtension  string `toml:"input_extension"`
	OutputPrefix    string `toml:"output_prefix"`
	OutputExtension string `toml:"output_extension"`
	IndexWidth      int    `toml:"index_width"`
	// Largest number of documents the dense policy may emit.
	MaxDenseScenes  int    `toml:"max_dense_scenes"`

	// Tokens matched exactly against the first filename segment.
	InterfaceTokens []string `toml:"interface_tokens"`
	SolidTokens     []string `toml:"solid_tokens"`
	DebrisTokens    []string `toml:"debris_tokens"`

	// Zero-based segment positions after splitting the stem on "_".
	SceneSegment       int `toml:"scene_segment"`
	DebrisSubSegment   int `toml:"debris_sub_segment"`
	DebrisSceneSegment int `toml:"debris_scene_segment"`
}

// Template contains the fixed values written into every scene document.
type Template struct {
	Version         string  `toml:"version"`
	Integrator      string  `toml:"integrator"`
	IntegratorParam string  `toml:"integrator_param"`
	IntegratorValue int     `toml:"integrator_value"`
	ShapeType       string  `toml:"shape_type"`
	BSDFType        string  `toml:"bsdf_type"`
	InterfaceIOR    float64 `toml:"interface_ior"`
	SolidIOR        float64 `toml:"solid_ior"`
	DebrisIOR       float64 `toml:"debris_ior"`
}

// Convert contains configuration for the Blender conversion driver.
type Convert struct {
	BlenderBinary string `toml:"blender_binary"`
	ScriptName    string `toml:"script_name"`
	Timeout       int    `toml:"timeout"`
}

// Solver contains configuration for the boundary-element solver driver.
type Solver struct {
	Binary          string `toml:"binary"`
	Jobs            int    `toml:"jobs"`
	Timeout         int    `toml:"timeout"`
	OutputPrefix    string `toml:"output_prefix"`
	OutputExtension string `toml:"output_extension"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	MaxSizeMB     int    `toml:"max_size_mb"`
}

// Config encapsulates all configuration values for meshbatch.
//
// Configuration sections by subsystem:
//   - Paths: state (run ledger) and log directories
//   - Scenes: mesh filename vocabulary, segment layout, and output naming
//   - Template: scene document header values and per-role refractive indices
//   - Convert: Blender binary and conversion script settings
//   - Solver: solver binary, parallelism, and output naming
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Scenes   Scenes   `toml:"scenes"`
	Template Template `toml:"template"`
	Convert  Convert  `toml:"convert"`
	Solver   Solver   `toml:"solver"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/meshbatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("meshbatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the location of the run history database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "meshbatch.db")
}

// LogFilePath returns the rotating log file location, or "" when file logging is off.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "meshbatch.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
