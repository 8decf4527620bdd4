package meshconv

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// FrameRange limits conversion to meshes whose frame number lies in
// [Start, End]. A Start of -1 disables filtering.
type FrameRange struct {
	Start int
	End   int
}

// AllFrames selects every mesh.
func AllFrames() FrameRange {
	return FrameRange{Start: -1, End: -1}
}

// Active reports whether the range filters anything.
func (r FrameRange) Active() bool {
	return r.Start != -1
}

// Validate rejects ranges that can never match.
func (r FrameRange) Validate() error {
	if !r.Active() {
		return nil
	}
	if r.Start < 0 || r.End < 0 {
		return fmt.Errorf("frame range %d..%d: frames must be non-negative", r.Start, r.End)
	}
	if r.End < r.Start {
		return fmt.Errorf("frame range %d..%d: end precedes start", r.Start, r.End)
	}
	return nil
}

// Contains reports whether frame falls inside the range.
func (r FrameRange) Contains(frame int) bool {
	if !r.Active() {
		return true
	}
	return frame >= r.Start && frame <= r.End
}

// ErrNoFrame is returned when a file name carries no frame number.
var ErrNoFrame = errors.New("no frame number in file name")

// FrameOf extracts the frame number from names like "mesh_000042.stl": the
// second "_"-separated segment of the stem.
func FrameOf(name string) (int, error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	segments := strings.Split(stem, "_")
	if len(segments) < 2 {
		return 0, fmt.Errorf("%s: %w", base, ErrNoFrame)
	}
	frame, err := strconv.Atoi(segments[1])
	if err != nil || frame < 0 {
		return 0, fmt.Errorf("%s: %w", base, ErrNoFrame)
	}
	return frame, nil
}
