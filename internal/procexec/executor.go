package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// MaxLineBytes bounds a single forwarded line. Longer output without a
// newline is forwarded in chunks of this size.
const MaxLineBytes = 1024 * 1024

// DefaultWaitDelay is how long Run keeps reading output after the process
// exits or is killed before it closes the pipes.
const DefaultWaitDelay = 10 * time.Second

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Binary string
	Code   int
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Command executes real processes with exec.CommandContext.
type Command struct {
	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
}

// Run starts binary with args and forwards stdout and stderr lines to onLine.
// onLine may be called from two goroutines at once.
func (c Command) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout := &lineWriter{onLine: onLine}
	stderr := &lineWriter{onLine: onLine}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Descendants that inherit the pipes would otherwise keep Wait blocked
	// after the process itself is gone.
	cmd.WaitDelay = DefaultWaitDelay
	if c.WaitDelay > 0 {
		cmd.WaitDelay = c.WaitDelay
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	err := cmd.Wait()
	stdout.flush()
	stderr.flush()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", binary, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Binary: binary, Code: exitErr.ExitCode(), Err: err}
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// Exit status was zero; a leftover descendant still held the output.
		return nil
	}
	return fmt.Errorf("wait %s: %w", binary, err)
}

// lineWriter splits a process stream into lines. It never rejects input, so
// a child writing an unterminated line cannot stall on a full pipe.
type lineWriter struct {
	onLine func(string)
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.buf = append(w.buf, p...)
			w.spill()
			return n, nil
		}
		w.buf = append(w.buf, p[:i]...)
		w.spill()
		w.emit()
		p = p[i+1:]
	}
}

func (w *lineWriter) spill() {
	for len(w.buf) > MaxLineBytes {
		w.send(w.buf[:MaxLineBytes])
		w.buf = append(w.buf[:0], w.buf[MaxLineBytes:]...)
	}
}

func (w *lineWriter) emit() {
	w.send(bytes.TrimSuffix(w.buf, []byte{'\r'}))
	w.buf = w.buf[:0]
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.emit()
	}
}

func (w *lineWriter) send(line []byte) {
	if w.onLine != nil {
		w.onLine(string(line))
	}
}
