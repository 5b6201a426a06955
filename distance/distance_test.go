package distance

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

func TestSphereDistance(t *testing.T) {
	ev, err := New(mesh.UnitSphereSurface(3))
	require.NoError(t, err)

	center := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	assert.InDelta(t, -0.5, ev.Evaluate(center), 0.01)
	assert.InDelta(t, 1.0, ev.Evaluate(r3.Vec{X: 2, Y: 0.5, Z: 0.5}), 0.01)
	assert.InDelta(t, -0.25, ev.Evaluate(r3.Vec{X: 0.5, Y: 0.75, Z: 0.5}), 0.01)
	corner := ev.Evaluate(r3.Vec{})
	assert.InDelta(t, math.Sqrt(0.75)-0.5, corner, 0.01)
}

func TestCubeSignAtFeatures(t *testing.T) {
	s := mesh.SurfaceFromMesh(mesh.UnitCubeMesh(1, 1))
	ev, err := New(s)
	require.NoError(t, err)

	tests := []struct {
		p    r3.Vec
		want float64
	}{
		{r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, -0.5},      // interior, nearest to a face
		{r3.Vec{X: 1.5, Y: 0.5, Z: 0.5}, 0.5},       // face region
		{r3.Vec{X: 1.5, Y: 1.5, Z: 0.5}, math.Sqrt(0.5)}, // edge region
		{r3.Vec{X: 1.5, Y: 1.5, Z: 1.5}, math.Sqrt(0.75)}, // vertex region
		{r3.Vec{X: -1, Y: -1, Z: -1}, math.Sqrt(3)},
		{r3.Vec{X: 0.9, Y: 0.9, Z: 0.9}, -0.1},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, ev.Evaluate(tc.p), 1e-12, "point %v", tc.p)
	}
}

func TestTreeMatchesBruteForce(t *testing.T) {
	ev, err := New(mesh.UnitSphereSurface(2))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		p := r3.Vec{X: rng.Float64()*2 - 0.5, Y: rng.Float64()*2 - 0.5, Z: rng.Float64()*2 - 0.5}
		best := math.Inf(1)
		for tri := range ev.triangles {
			q, _ := ev.closest(p, tri)
			best = math.Min(best, r3.Norm(r3.Sub(p, q)))
		}
		assert.InDelta(t, best, math.Abs(ev.Evaluate(p)), 1e-12)
	}
}

func TestDegenerateSurface(t *testing.T) {
	surfaces := map[string]*mesh.Surface{
		"empty": {},
		"point": {
			Vertices:  []r3.Vec{{X: 1}, {X: 1}, {X: 1}},
			Triangles: [][3]int{{0, 1, 2}},
		},
		"collinear": {
			Vertices:  []r3.Vec{{}, {X: 1}, {X: 2}},
			Triangles: [][3]int{{0, 1, 2}},
		},
		"bad index": {
			Vertices:  []r3.Vec{{}, {X: 1}, {Y: 1}},
			Triangles: [][3]int{{0, 1, 3}},
		},
	}
	for name, s := range surfaces {
		_, err := Compute(mesh.UnitCubeMesh(1, 1), s)
		var ge *types.GeometryError
		assert.True(t, errors.As(err, &ge), "%s: %v", name, err)
	}
}

func TestComputeField(t *testing.T) {
	m := mesh.UnitCubeMesh(2, 1)
	field, err := Compute(m, mesh.UnitSphereSurface(3))
	require.NoError(t, err)
	require.Len(t, field, m.NumVertices)
	for i, v := range m.Vertices {
		r := math.Sqrt((v[0]-0.5)*(v[0]-0.5) + (v[1]-0.5)*(v[1]-0.5) + (v[2]-0.5)*(v[2]-0.5))
		assert.InDelta(t, r-0.5, field[i], 0.01, "vertex %d", i)
	}

	// Pure: a second evaluation is bit identical
	again, err := Compute(m, mesh.UnitSphereSurface(3))
	require.NoError(t, err)
	assert.Equal(t, field, again)

	m.Vertices[0][0] = math.NaN()
	_, err = Compute(m, mesh.UnitSphereSurface(1))
	var ge *types.GeometryError
	assert.True(t, errors.As(err, &ge))
}
