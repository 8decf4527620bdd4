package meshconv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidInputPath marks a missing or non-directory source directory.
var ErrInvalidInputPath = errors.New("invalid input path")

// Pair maps a source mesh to the file Blender will export.
type Pair struct {
	Source string
	Target string
}

// TargetName derives the exported file name: everything before the first
// "." of the source name, plus the target extension.
func TargetName(source string, direction Direction) string {
	base := filepath.Base(source)
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return base + direction.TargetExt()
}

// ListSources returns the sorted base names of meshes in dir that match the
// direction's source extension and lie within frames.
func ListSources(dir string, direction Direction, frames FrameRange) ([]string, error) {
	selected, _, err := listSources(dir, direction, frames)
	return selected, err
}

// listSources also returns the names skipped because no frame could be read.
func listSources(dir string, direction Direction, frames FrameRange) ([]string, []string, error) {
	if err := frames.Validate(); err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrInvalidInputPath, dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidInputPath, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var selected, unparsed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), direction.SourceExt()) {
			continue
		}
		if frames.Active() {
			frame, err := FrameOf(name)
			if err != nil {
				unparsed = append(unparsed, name)
				continue
			}
			if !frames.Contains(frame) {
				continue
			}
		}
		selected = append(selected, name)
	}
	return selected, unparsed, nil
}
