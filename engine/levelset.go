package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

// Region references written by level-set discretization, matching mmg3d
const (
	InteriorRef = 3
	ExteriorRef = 2
)

// LevelSet is an in-process engine. Adapt tags each tetrahedron by the sign of the mean
// level-set value at its vertices without moving or inserting vertices, Extract keeps the
// tetrahedra carrying the requested tag. Useful for dry runs when mmg3d is not installed.
type LevelSet struct{}

func (LevelSet) Adapt(ctx context.Context, req AdaptRequest) (*Result, error) {
	start := time.Now()
	res := &Result{Command: []string{"levelset", "adapt", req.Input, req.Solution, req.Output}}
	fail := func(err error) (*Result, error) {
		res.ExitCode = 1
		res.Stderr = err.Error() + "\n"
		res.Elapsed = time.Since(start)
		return res, &types.AdaptationError{Op: "levelset adapt", Command: res.Command, ExitCode: 1,
			Stderr: res.Stderr, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	m, err := mesh.ReadMedit(req.Input)
	if err != nil {
		return fail(err)
	}
	field, err := mesh.ReadSolFile(req.Solution)
	if err != nil {
		return fail(err)
	}
	if len(field) != m.NumVertices {
		return fail(fmt.Errorf("solution has %d values, mesh has %d vertices", len(field), m.NumVertices))
	}

	out := mesh.NewMesh()
	out.Vertices, out.VertexRefs, out.NumVertices = m.Vertices, m.VertexRefs, m.NumVertices
	var interior, exterior int
	for i, et := range m.ElementTypes {
		if et != mesh.Tet {
			continue
		}
		var sum float64
		for _, v := range m.EtoV[i] {
			sum += field[v]
		}
		tag := ExteriorRef
		if sum < 0 {
			tag = InteriorRef
			interior++
		} else {
			exterior++
		}
		out.AddElement(mesh.Tet, m.EtoV[i], tag)
	}
	if interior+exterior == 0 {
		return fail(fmt.Errorf("%s has no tetrahedra", req.Input))
	}
	skin, tags := out.Skin()
	for i, tri := range skin {
		out.AddElement(mesh.Triangle, tri[:], tags[i])
	}
	if err = mesh.WriteMedit(req.Output, out); err != nil {
		return fail(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  -- LEVEL-SET DISCRETIZATION %s\n", req.Input)
	fmt.Fprintf(&b, "     INTERIOR TETRAHEDRA (ref %d) %d\n", InteriorRef, interior)
	fmt.Fprintf(&b, "     EXTERIOR TETRAHEDRA (ref %d) %d\n", ExteriorRef, exterior)
	res.Stdout = b.String()
	res.Elapsed = time.Since(start)
	return res, nil
}

func (LevelSet) Extract(ctx context.Context, req ExtractRequest) (*Result, error) {
	start := time.Now()
	res := &Result{Command: []string{"levelset", "extract", req.Input, req.Output, fmt.Sprint(req.Tag)}}
	fail := func(err error) (*Result, error) {
		res.ExitCode = 1
		res.Stderr = err.Error() + "\n"
		res.Elapsed = time.Since(start)
		return res, &types.AdaptationError{Op: "levelset extract", Command: res.Command, ExitCode: 1,
			Stderr: res.Stderr, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	m, err := mesh.ReadMedit(req.Input)
	if err != nil {
		return fail(err)
	}
	sub := m.Subdomain(req.Tag)
	if sub.Count(mesh.Tet) == 0 {
		return fail(fmt.Errorf("no tetrahedra with ref %d", req.Tag))
	}
	if err = mesh.WriteMedit(req.Output, sub); err != nil {
		return fail(err)
	}
	res.Stdout = fmt.Sprintf("  -- SUBDOMAIN %d: %d TETRAHEDRA, %d VERTICES\n", req.Tag, sub.Count(mesh.Tet), sub.NumVertices)
	res.Elapsed = time.Since(start)
	return res, nil
}
