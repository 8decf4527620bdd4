// Package config loads, normalizes, and validates meshbatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MESHBATCH_SOLVER and MESHBATCH_BLENDER. The Config type centralizes every
// knob the scene generator, the conversion driver, and the solver driver
// need: the filename vocabulary, the scene document template constants, and
// the external binaries.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical token lists, and clear validation errors.
package config
