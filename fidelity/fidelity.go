package fidelity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshadapt/distance"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

// Report summarizes the signed distances from a candidate boundary to a reference surface
type Report struct {
	RMSE         float64 // Root mean square signed distance
	MaxDeviation float64 // Signed distance of largest magnitude, diagnostic only
	NumPoints    int
}

func (r Report) String() string {
	return fmt.Sprintf("RMSE: %g, max deviation: %g, points: %d", r.RMSE, r.MaxDeviation, r.NumPoints)
}

// Compare evaluates the signed distance to reference at every boundary vertex of candidate,
// in ascending vertex order. Identical inputs give bit identical reports.
func Compare(candidate *mesh.Mesh, reference *mesh.Surface) (Report, error) {
	ev, err := distance.New(reference)
	if err != nil {
		return Report{}, err
	}
	return CompareWith(ev, candidate)
}

// CompareWith is Compare against a prebuilt evaluator
func CompareWith(ev *distance.Evaluator, candidate *mesh.Mesh) (Report, error) {
	verts := candidate.BoundaryVertices()
	if len(verts) == 0 {
		return Report{}, &types.GeometryError{Op: "compare", Err: fmt.Errorf("candidate mesh has no boundary")}
	}
	d := make([]float64, len(verts))
	for i, v := range verts {
		x := candidate.Vertices[v]
		d[i] = ev.Evaluate(r3.Vec{X: x[0], Y: x[1], Z: x[2]})
		if math.IsNaN(d[i]) || math.IsInf(d[i], 0) {
			return Report{}, &types.GeometryError{Op: "compare",
				Err: fmt.Errorf("non finite distance at vertex %d", v+1)}
		}
	}
	rep := Report{NumPoints: len(d)}
	rep.RMSE = floats.Norm(d, 2) / math.Sqrt(float64(len(d)))
	lo, hi := floats.Min(d), floats.Max(d)
	rep.MaxDeviation = hi
	if -lo > hi {
		rep.MaxDeviation = lo
	}
	return rep, nil
}

// CompareFiles reads a Medit mesh and a surface file (.ply, .stl or .mesh) and compares them
func CompareFiles(meshPath, surfacePath string) (Report, error) {
	m, err := mesh.ReadMedit(meshPath)
	if err != nil {
		return Report{}, err
	}
	s, err := mesh.ReadSurface(surfacePath)
	if err != nil {
		return Report{}, err
	}
	rep, err := Compare(m, s)
	if err != nil {
		return Report{}, fmt.Errorf("comparing %s with %s: %w", meshPath, surfacePath, err)
	}
	return rep, nil
}
