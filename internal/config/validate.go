package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScenes(); err != nil {
		return err
	}
	if err := c.validateTemplate(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateSolver(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScenes() error {
	switch c.Scenes.Policy {
	case PolicyOccurred, PolicyDense:
	default:
		return fmt.Errorf("scenes.policy must be %q or %q, got %q", PolicyOccurred, PolicyDense, c.Scenes.Policy)
	}
	if c.Scenes.IndexWidth > 18 {
		return errors.New("scenes.index_width must be at most 18")
	}
	owners := make(map[string]string)
	for key, tokens := range map[string][]string{
		"scenes.interface_tokens": c.Scenes.InterfaceTokens,
		"scenes.solid_tokens":     c.Scenes.SolidTokens,
		"scenes.debris_tokens":    c.Scenes.DebrisTokens,
	} {
		for _, token := range tokens {
			if strings.Contains(token, "_") {
				return fmt.Errorf("%s: token %q must not contain '_'", key, token)
			}
			if other, ok := owners[token]; ok {
				return fmt.Errorf("token %q is listed in both %s and %s", token, other, key)
			}
			owners[token] = key
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"scenes.scene_segment":        c.Scenes.SceneSegment,
		"scenes.debris_sub_segment":   c.Scenes.DebrisSubSegment,
		"scenes.debris_scene_segment": c.Scenes.DebrisSceneSegment,
	}); err != nil {
		return err
	}
	if c.Scenes.DebrisSubSegment == c.Scenes.DebrisSceneSegment {
		return errors.New("scenes.debris_sub_segment and scenes.debris_scene_segment must differ")
	}
	return nil
}

func (c *Config) validateTemplate() error {
	if c.Template.IntegratorValue < 0 {
		return errors.New("template.integrator_value must be >= 0")
	}
	for key, value := range map[string]float64{
		"template.interface_ior": c.Template.InterfaceIOR,
		"template.solid_ior":     c.Template.SolidIOR,
		"template.debris_ior":    c.Template.DebrisIOR,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateConvert() error {
	if c.Convert.Timeout <= 0 {
		return errors.New("convert.timeout must be positive (seconds)")
	}
	if strings.ContainsAny(c.Convert.ScriptName, `/\`) {
		return errors.New("convert.script_name must be a file name, not a path")
	}
	return nil
}

func (c *Config) validateSolver() error {
	return ensurePositiveMap(map[string]int{
		"solver.jobs":    c.Solver.Jobs,
		"solver.timeout": c.Solver.Timeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
