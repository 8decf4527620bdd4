package procexec_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"meshbatch/internal/procexec"
)

func TestCommandStreamsBothStreams(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	err := procexec.Command{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo out; echo err 1>&2"}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sort.Strings(lines)
	if len(lines) != 2 || lines[0] != "err" || lines[1] != "out" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestCommandReportsExitCode(t *testing.T) {
	err := procexec.Command{}.Run(context.Background(), "/bin/sh", []string{"-c", "exit 3"}, nil)
	var exitErr *procexec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.Code)
	}
}

func TestCommandMissingBinary(t *testing.T) {
	err := procexec.Command{}.Run(context.Background(), "/nonexistent/meshbatch-tool", nil, nil)
	if err == nil {
		t.Fatal("expected start error")
	}
}

func TestCommandHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := procexec.Command{}.Run(ctx, "/bin/sh", []string{"-c", "exec sleep 5"}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestCommandForwardsOversizedLinesInChunks(t *testing.T) {
	const total = 3 * procexec.MaxLineBytes
	var (
		mu     sync.Mutex
		chunks []int
	)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	start := time.Now()
	err := procexec.Command{}.Run(ctx, "/bin/sh", []string{"-c", "exec head -c 3145728 /dev/zero"}, func(line string) {
		mu.Lock()
		chunks = append(chunks, len(line))
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Run took %s; output was not drained", elapsed)
	}
	sum := 0
	for _, n := range chunks {
		if n > procexec.MaxLineBytes {
			t.Fatalf("chunk of %d bytes exceeds limit", n)
		}
		sum += n
	}
	if sum != total {
		t.Fatalf("forwarded %d bytes, want %d", sum, total)
	}
}

func TestCommandReturnsWhenDescendantHoldsOutput(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	start := time.Now()
	err := procexec.Command{WaitDelay: 200 * time.Millisecond}.Run(context.Background(), "/bin/sh",
		[]string{"-c", "sleep 10 & echo done"}, func(line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Run waited %s for a background descendant", elapsed)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 1 || lines[0] != "done" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestCommandDeadlineWithDescendantHoldingOutput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := procexec.Command{WaitDelay: 200 * time.Millisecond}.Run(ctx, "/bin/sh", []string{"-c", "sleep 10; echo late"}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Run returned after %s", elapsed)
	}
}

func TestCommandStripsCarriageReturns(t *testing.T) {
	var lines []string
	err := procexec.Command{}.Run(context.Background(), "/bin/sh", []string{"-c", `printf 'a\r\nb'`}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}
