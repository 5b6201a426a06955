package bc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

func TestFingerprint(t *testing.T) {
	m := mesh.UnitCubeMesh(2, 1)
	fp := Fingerprint(m)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint(mesh.UnitCubeMesh(2, 1)))
	assert.NotEqual(t, fp, Fingerprint(mesh.UnitCubeMesh(3, 1)))

	// Tags do not change the geometry
	assert.Equal(t, fp, Fingerprint(mesh.UnitCubeMesh(2, 7)))

	moved := mesh.UnitCubeMesh(2, 1)
	moved.Vertices[0][0] += 1e-12
	assert.NotEqual(t, fp, Fingerprint(moved))
}

func TestValidate(t *testing.T) {
	m := mesh.UnitCubeMesh(2, 1)
	s := NewSet("clamp", m)
	s.AddDirichlet([]int{0, 1}, [3]float64{})
	s.AddNeumann([]int{26}, [3]float64{0, 0, -1})
	s.AddDesign(m.BoundaryVertices(), Immutable)
	require.NoError(t, s.Validate(m))

	assert.True(t, errors.Is(s.Validate(mesh.UnitCubeMesh(3, 1)), ErrStale))

	s.AddNeumann([]int{27}, [3]float64{1, 0, 0})
	var ge *types.GeometryError
	assert.True(t, errors.As(s.Validate(m), &ge))

	s = NewSet("domain", m)
	s.Design = []DesignNode{{Node: 0, Domain: 4}}
	assert.True(t, errors.As(s.Validate(m), &ge))
}

func TestSelection(t *testing.T) {
	m := mesh.UnitCubeMesh(2, 1)
	// 27 vertices, 26 of them on the skin, the center is interior
	skin := DesignDomainFromSkin(m)
	require.Len(t, skin, 26)
	for _, d := range skin {
		assert.Equal(t, Immutable, d.Domain)
		assert.NotEqual(t, []float64{0.5, 0.5, 0.5}, m.Vertices[d.Node])
	}

	bottom := Box{Min: [3]float64{-1, -1, -1e-9}, Max: [3]float64{2, 2, 1e-9}}
	assert.Len(t, SelectBox(m, bottom, true), 9)
	assert.Len(t, SelectBox(m, bottom, false), 9)

	center := Box{Min: [3]float64{0.4, 0.4, 0.4}, Max: [3]float64{0.6, 0.6, 0.6}}
	assert.Empty(t, SelectBox(m, center, true))
	assert.Len(t, SelectBox(m, center, false), 1)
}

func TestNodes(t *testing.T) {
	s := &Set{}
	s.AddDirichlet([]int{5, 2, 5}, [3]float64{})
	s.AddDirichlet([]int{2}, [3]float64{1, 0, 0})
	assert.Equal(t, []int{2, 5}, s.Nodes(types.BC_Dirichlet))
	assert.Empty(t, s.Nodes(types.BC_Neumann))
	assert.Empty(t, s.Nodes(types.BC_None))
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	m := mesh.UnitCubeMesh(2, 1)
	s := NewSet("bracket", m)
	s.Mesh = "cube.mesh"
	s.AddDirichlet([]int{0, 3}, [3]float64{0, 0, 0})
	s.AddNeumann([]int{8}, [3]float64{0, -2.5, 0})
	s.Design = DesignDomainFromSkin(m)

	path := filepath.Join(dir, "bc.yaml")
	require.NoError(t, Save(path, s))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "design_domain: -1")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
	assert.NoError(t, loaded.Validate(m))

	require.NoError(t, os.WriteFile(path, []byte("name: [unterminated"), 0644))
	_, err = Load(path)
	var fe *types.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	m := mesh.UnitCubeMesh(2, 1)
	s := NewSet("bracket", m)
	s.AddDirichlet([]int{0}, [3]float64{})
	s.Design = DesignDomainFromSkin(m)

	base := filepath.Join(dir, "cube")
	written, err := Export(base, m, s)
	require.NoError(t, err)
	assert.Equal(t, []string{base + "_dirichlet_BC.txt", base + "_design_domain.json"}, written)

	data, err := os.ReadFile(base + "_dirichlet_BC.txt")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(string(data)), ",")
	assert.Len(t, fields, 3)

	data, err = os.ReadFile(base + "_design_domain.json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 26)
	assert.Equal(t, `{"design_nodes":0,"design_domain":-1}`, lines[0])

	design, err := ReadDesignJSONLines(base + "_design_domain.json")
	require.NoError(t, err)
	assert.Equal(t, s.Design, design)

	// Exporting against another mesh is refused
	_, err = Export(base, mesh.UnitCubeMesh(3, 1), s)
	assert.True(t, errors.Is(err, ErrStale))
}
