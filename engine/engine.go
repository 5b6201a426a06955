// Package engine defines the contract of the external remeshing engine and its bindings.
// The adaptation driver talks only to Engine, so the mmg3d subprocess can be swapped for
// an in-process implementation without changing its control flow.
package engine

import (
	"context"
	"time"
)

// AdaptRequest asks for a level-set adaptation of Input driven by the scalar field in Solution
type AdaptRequest struct {
	Input    string
	Solution string
	Output   string
	Hausd    float64
	Hgrad    float64
	Hmin     float64
	Hmax     float64
	MemoryMB int
	Debug    bool
}

// ExtractRequest asks for the elements of Input carrying Tag, without inserting, swapping or moving vertices
type ExtractRequest struct {
	Input  string
	Output string
	Tag    int
	Debug  bool
}

// Result holds the captured output of one engine invocation
type Result struct {
	Command  []string
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
}

// Engine is a mesh adaptation engine. Both calls block until the engine is finished.
// On failure the returned Result, when non nil, still carries the captured output.
type Engine interface {
	Adapt(ctx context.Context, req AdaptRequest) (*Result, error)
	Extract(ctx context.Context, req ExtractRequest) (*Result, error)
}
