package adapt

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notargets/meshadapt/distance"
	"github.com/notargets/meshadapt/engine"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

// Driver runs chained level-set adaptations of a volume mesh toward a target surface
type Driver struct {
	Engine engine.Engine
	Logger logrus.FieldLogger
	Output io.Writer // Receives the engine's captured output verbatim, may be nil
	Debug  bool
}

type Request struct {
	Input      string        // Initial volume mesh
	Surface    string        // Target surface file, read when Target is nil
	Target     *mesh.Surface // Preloaded target surface
	Output     string        // First output, DefaultOutput(Input) when empty
	Params     Parameters
	Iterations int // Refinements after the first round
	MemoryMB   int
}

type Outcome struct {
	Final      string   // Output of the last iteration
	Artifacts  []string // Every produced mesh, in iteration order
	Directives []string // Level-set solution per iteration
	Elapsed    time.Duration
}

func logger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}

func echo(w io.Writer, res *engine.Result) {
	if w == nil || res == nil {
		return
	}
	io.WriteString(w, res.Stdout)
	io.WriteString(w, res.Stderr)
}

// Adapt runs Iterations+1 rounds of signed distance, directive and engine adaptation, each
// round reading the mesh the previous one produced. Parameters are validated before the
// engine is invoked. On failure the returned Outcome lists the artifacts completed so far.
func (d *Driver) Adapt(ctx context.Context, req Request) (*Outcome, error) {
	log := logger(d.Logger)
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.Iterations < 0 || req.MemoryMB < 0 {
		return nil, &types.GeometryError{Op: "validate request",
			Err: fmt.Errorf("%w: iterations %d, memory %d MB", types.ErrInvalidParameters, req.Iterations, req.MemoryMB)}
	}
	if req.MemoryMB == 0 {
		req.MemoryMB = DefaultMemoryMB
	}
	if req.Output == "" {
		req.Output = DefaultOutput(req.Input)
	}
	if filepath.Clean(req.Output) == filepath.Clean(req.Input) {
		return nil, &types.GeometryError{Op: "validate request", Path: req.Input,
			Err: fmt.Errorf("output would overwrite the input mesh")}
	}

	target := req.Target
	if target == nil {
		var err error
		if target, err = mesh.ReadSurface(req.Surface); err != nil {
			return nil, fmt.Errorf("reading target surface: %w", err)
		}
	}
	ev, err := distance.New(target)
	if err != nil {
		return nil, err
	}

	var (
		start   = time.Now()
		outcome = &Outcome{}
		current = req.Input
	)
	for i := 0; i <= req.Iterations; i++ {
		if err = ctx.Err(); err != nil {
			return outcome, err
		}
		output := ArtifactName(req.Output, i)
		ilog := log.WithFields(logrus.Fields{"iteration": i, "input": current, "output": output})

		m, err := mesh.ReadMedit(current)
		if err != nil {
			return outcome, fmt.Errorf("iteration %d: %w", i, err)
		}
		field, err := ev.Field(m)
		if err != nil {
			return outcome, fmt.Errorf("iteration %d: %w", i, err)
		}
		directive := DirectiveName(output)
		if err = writeDirective(current, directive, field); err != nil {
			return outcome, fmt.Errorf("iteration %d: %w", i, err)
		}
		outcome.Directives = append(outcome.Directives, directive)

		ilog.WithField("params", req.Params.String()).Debug("invoking engine")
		res, err := d.Engine.Adapt(ctx, engine.AdaptRequest{
			Input:    current,
			Solution: directive,
			Output:   output,
			Hausd:    req.Params.Hausd,
			Hgrad:    req.Params.Hgrad,
			Hmin:     req.Params.Hmin,
			Hmax:     req.Params.Hmax,
			MemoryMB: req.MemoryMB,
			Debug:    d.Debug,
		})
		echo(d.Output, res)
		if err != nil {
			ilog.WithError(err).Error("adaptation failed")
			return outcome, fmt.Errorf("iteration %d: %w", i, err)
		}
		ilog.WithField("elapsed", res.Elapsed.Round(time.Millisecond)).Info("adapted")
		outcome.Artifacts = append(outcome.Artifacts, output)
		current = output
	}
	outcome.Final = current
	outcome.Elapsed = time.Since(start)
	return outcome, nil
}
