package types

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// ErrInvalidParameters marks a rejected adaptation parameter tuple
var ErrInvalidParameters = errors.New("invalid adaptation parameters")

// GeometryError reports degenerate or invalid mesh, surface or parameter input
type GeometryError struct {
	Op   string // What was being computed
	Path string // Offending file, may be empty
	Err  error
}

func (e *GeometryError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("geometry error: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("geometry error: %s: %v", e.Op, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// AdaptationError reports a failed or silent external engine invocation.
// Stdout and Stderr hold the engine's captured output verbatim.
type AdaptationError struct {
	Op       string
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *AdaptationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "adaptation error: %s", e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if len(e.Stderr) != 0 {
		fmt.Fprintf(&b, "\n%s", e.Stderr)
	}
	return b.String()
}

func (e *AdaptationError) Unwrap() error { return e.Err }

// EmptySelectionError is returned when a region tag selects no elements
type EmptySelectionError struct {
	Path string
	Tag  int
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("empty selection: no elements with tag %d in %s", e.Tag, e.Path)
}

// FormatError reports a mesh, solution or log file that failed to parse or round-trip
type FormatError struct {
	Path string
	Line int // 1-based, zero when unknown
	Err  error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format error: %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("format error: %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// IsEnvironmentError reports whether err comes from the file system refusing a write, a full
// or read-only disk, an exhausted quota or a denied permission. Retrying with other
// parameters cannot succeed, so these failures end a run.
func IsEnvironmentError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{syscall.ENOSPC, syscall.EDQUOT, syscall.EROFS, fs.ErrPermission} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
