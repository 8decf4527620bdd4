package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScenes()
	c.normalizeTemplate()
	c.normalizeConvert()
	c.normalizeSolver()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScenes() {
	c.Scenes.Policy = strings.ToLower(strings.TrimSpace(c.Scenes.Policy))
	if c.Scenes.Policy == "" {
		c.Scenes.Policy = defaultScenePolicy
	}
	c.Scenes.InputExtension = normalizeExtension(c.Scenes.InputExtension, defaultSceneInputExt)
	c.Scenes.OutputExtension = normalizeExtension(c.Scenes.OutputExtension, defaultSceneOutputExt)
	c.Scenes.OutputPrefix = strings.TrimSpace(c.Scenes.OutputPrefix)
	if c.Scenes.IndexWidth <= 0 {
		c.Scenes.IndexWidth = defaultSceneIndexWidth
	}
	if c.Scenes.MaxDenseScenes <= 0 {
		c.Scenes.MaxDenseScenes = defaultMaxDenseScenes
	}
	c.Scenes.InterfaceTokens = normalizeTokens(c.Scenes.InterfaceTokens, defaultInterfaceTokens)
	c.Scenes.SolidTokens = normalizeTokens(c.Scenes.SolidTokens, defaultSolidTokens)
	c.Scenes.DebrisTokens = normalizeTokens(c.Scenes.DebrisTokens, defaultDebrisTokens)
}

func (c *Config) normalizeTemplate() {
	c.Template.Version = strings.TrimSpace(c.Template.Version)
	if c.Template.Version == "" {
		c.Template.Version = defaultSceneVersion
	}
	c.Template.Integrator = strings.TrimSpace(c.Template.Integrator)
	if c.Template.Integrator == "" {
		c.Template.Integrator = defaultIntegrator
	}
	c.Template.IntegratorParam = strings.TrimSpace(c.Template.IntegratorParam)
	if c.Template.IntegratorParam == "" {
		c.Template.IntegratorParam = defaultIntegratorParam
	}
	c.Template.ShapeType = strings.TrimSpace(c.Template.ShapeType)
	if c.Template.ShapeType == "" {
		c.Template.ShapeType = defaultShapeType
	}
	c.Template.BSDFType = strings.TrimSpace(c.Template.BSDFType)
	if c.Template.BSDFType == "" {
		c.Template.BSDFType = defaultBSDFType
	}
}

func (c *Config) normalizeConvert() {
	c.Convert.BlenderBinary = strings.TrimSpace(c.Convert.BlenderBinary)
	if value, ok := os.LookupEnv("MESHBATCH_BLENDER"); ok && strings.TrimSpace(value) != "" {
		c.Convert.BlenderBinary = strings.TrimSpace(value)
	}
	if c.Convert.BlenderBinary == "" {
		c.Convert.BlenderBinary = defaultBlenderBinary
	}
	c.Convert.ScriptName = strings.TrimSpace(c.Convert.ScriptName)
	if c.Convert.ScriptName == "" {
		c.Convert.ScriptName = defaultConvertScript
	}
}

func (c *Config) normalizeSolver() {
	c.Solver.Binary = strings.TrimSpace(c.Solver.Binary)
	if value, ok := os.LookupEnv("MESHBATCH_SOLVER"); ok && strings.TrimSpace(value) != "" {
		c.Solver.Binary = strings.TrimSpace(value)
	}
	if c.Solver.Binary == "" {
		c.Solver.Binary = defaultSolverBinary
	}
	if c.Solver.Jobs <= 0 {
		c.Solver.Jobs = defaultSolverJobs
	}
	c.Solver.OutputPrefix = strings.TrimSpace(c.Solver.OutputPrefix)
	c.Solver.OutputExtension = normalizeExtension(c.Solver.OutputExtension, defaultSolverOutExt)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
}

func normalizeExtension(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, ".") {
		value = "." + value
	}
	return value
}

// normalizeTokens trims and dedupes role tokens. Tokens are case-sensitive.
func normalizeTokens(tokens, fallback []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
