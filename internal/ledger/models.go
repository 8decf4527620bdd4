package ledger

import (
	"errors"
	"time"
)

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	// RunPartial means the run finished but at least one artifact failed.
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// ArtifactStatus is the outcome for a single input file.
type ArtifactStatus string

const (
	ArtifactSucceeded ArtifactStatus = "succeeded"
	ArtifactFailed    ArtifactStatus = "failed"
	ArtifactSkipped   ArtifactStatus = "skipped"
)

// Valid reports whether the status is one the ledger stores.
func (s ArtifactStatus) Valid() bool {
	switch s {
	case ArtifactSucceeded, ArtifactFailed, ArtifactSkipped:
		return true
	}
	return false
}

// ErrRunNotFound is returned when a run id or prefix matches nothing.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when a run id prefix matches more than one run.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// Run is one invocation of a batch command.
type Run struct {
	ID         string
	Command    string
	InputDir   string
	OutputDir  string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Skipped    int
	Error      string
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Artifact is the outcome of handling one input file within a run.
type Artifact struct {
	ID           int64
	RunID        string
	Input        string
	Output       string
	Status       ArtifactStatus
	Detail       string
	InputSize    int64
	InputModTime time.Time
	RecordedAt   time.Time
}

// MatchesInput reports whether the recorded input fingerprint equals the
// given size and modification time.
func (a *Artifact) MatchesInput(size int64, modTime time.Time) bool {
	return !a.InputModTime.IsZero() && a.InputSize == size && a.InputModTime.Equal(modTime)
}
