// Package sandbox validates candidate artifacts by running them as a
// subprocess inside a throwaway working directory.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"autoforge/internal/refine"
	"autoforge/internal/safeio"
)

const (
	// DefaultTimeout bounds a single validation run.
	DefaultTimeout = 30 * time.Second
	// maxDiagnostic bounds the stdout/stderr capture handed back to the
	// repair prompt.
	maxDiagnostic = 8192
)

// Runner executes artifacts written to disk. Command receives the artifact
// file path as its final argument, e.g. {"python3"} or {"sh"}.
type Runner struct {
	Command  []string
	Filename string // artifact file name inside the workdir, default "artifact"
	Timeout  time.Duration
	Dir      string // parent for per-run workdirs; default os.TempDir()
}

func NewRunner(command ...string) *Runner {
	return &Runner{Command: command, Filename: "artifact", Timeout: DefaultTimeout}
}

// Check writes the candidate to a fresh confined workdir, runs the command
// against it, and reports the combined output as the diagnostic on failure.
// The workdir is removed before returning. Errors are reserved for
// infrastructure faults; a failing candidate yields Success=false.
func (r *Runner) Check(ctx context.Context, candidate string) (refine.ValidationResult, error) {
	if len(r.Command) == 0 {
		return refine.ValidationResult{}, errors.New("sandbox: no command configured")
	}

	parent := r.Dir
	if parent == "" {
		parent = os.TempDir()
	}
	workdir, err := os.MkdirTemp(parent, "autoforge-run-")
	if err != nil {
		return refine.ValidationResult{}, fmt.Errorf("sandbox: create workdir: %w", err)
	}
	defer os.RemoveAll(workdir)

	fsys, err := safeio.NewSafeFS(workdir)
	if err != nil {
		return refine.ValidationResult{}, fmt.Errorf("sandbox: confine workdir: %w", err)
	}
	name := r.Filename
	if name == "" {
		name = "artifact"
	}
	if err := fsys.SafeWriteFile(name, []byte(candidate), 0o644); err != nil {
		return refine.ValidationResult{}, fmt.Errorf("sandbox: write artifact: %w", err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, r.Command[1:]...), name)
	cmd := exec.CommandContext(runCtx, r.Command[0], args...)
	cmd.Dir = fsys.Root()
	setProcAttrs(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	if runErr == nil {
		return refine.ValidationResult{Success: true}, nil
	}

	// The parent context dying is a cancellation, not a verdict.
	if ctx.Err() != nil {
		return refine.ValidationResult{}, ctx.Err()
	}

	diag := truncateOutput(out.String())
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		diag = strings.TrimSpace(diag + "\nexecution timed out after " + timeout.String())
	}
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) && runCtx.Err() == nil {
		// Command could not start at all (missing interpreter etc).
		return refine.ValidationResult{}, fmt.Errorf("sandbox: run %s: %w", r.Command[0], runErr)
	}
	if diag == "" {
		diag = runErr.Error()
	}
	return refine.ValidationResult{Success: false, Diagnostic: diag}, nil
}

func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDiagnostic {
		return s
	}
	return s[:maxDiagnostic] + "\n... (output truncated)"
}
