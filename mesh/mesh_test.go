package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshadapt/types"
)

func TestUnitCubeMesh(t *testing.T) {
	m := UnitCubeMesh(2, 1)
	assert.Equal(t, 27, m.NumVertices)
	assert.Equal(t, 48, m.Count(Tet))
	assert.Equal(t, 48, m.Count(Triangle))
	require.NoError(t, m.Validate())

	var vol float64
	for i, et := range m.ElementTypes {
		if et == Tet {
			v := m.TetVolume(i)
			assert.Greater(t, v, 0.0, "tet %d is inverted", i)
			vol += v
		}
	}
	assert.InDelta(t, 1.0, vol, 1e-12)
	assert.Len(t, m.BoundaryVertices(), 26)
}

func TestConnectivityReciprocity(t *testing.T) {
	m := UnitCubeMesh(2, 1)
	m.BuildConnectivity()

	boundary := 0
	for elemID := 0; elemID < m.NumElements; elemID++ {
		if m.ElementTypes[elemID] != Tet {
			continue
		}
		for face := 0; face < 4; face++ {
			neighbor := m.EToE[elemID][face]
			if neighbor == -1 {
				boundary++
				continue
			}
			neighborFace := m.EToF[elemID][face]
			if m.EToE[neighbor][neighborFace] != elemID {
				t.Errorf("Non-reciprocal connectivity: elem %d face %d -> elem %d face %d -> elem %d",
					elemID, face, neighbor, neighborFace, m.EToE[neighbor][neighborFace])
			}
		}
	}
	assert.Equal(t, 48, boundary)
	// Each interior face is shared once, each boundary face stands alone
	assert.Equal(t, (4*48-48)/2+48, m.NumFaces)
}

func TestSkinOrientation(t *testing.T) {
	m := UnitCubeMesh(1, 1)
	skin, tags := m.Skin()
	require.Len(t, skin, 12)
	for i, tri := range skin {
		a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
		pa := r3.Vec{X: a[0], Y: a[1], Z: a[2]}
		n := r3.Cross(
			r3.Sub(r3.Vec{X: b[0], Y: b[1], Z: b[2]}, pa),
			r3.Sub(r3.Vec{X: c[0], Y: c[1], Z: c[2]}, pa))
		centroid := r3.Scale(1./3, r3.Add(pa, r3.Add(r3.Vec{X: b[0], Y: b[1], Z: b[2]}, r3.Vec{X: c[0], Y: c[1], Z: c[2]})))
		out := r3.Sub(centroid, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
		assert.Greater(t, r3.Dot(n, out), 0.0, "skin face %d points inward", i)
		assert.Equal(t, 1, tags[i])
	}
}

func TestMeditRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := UnitCubeMesh(2, 3)
	m.Vertices[5][0] = 0.1 + 0.2 // not exactly representable in short decimal
	m.VertexRefs[7] = 12

	path := filepath.Join(dir, "cube.mesh")
	require.NoError(t, WriteMedit(path, m))

	r, err := ReadMedit(path)
	require.NoError(t, err)
	assert.Equal(t, m.NumVertices, r.NumVertices)
	assert.Equal(t, m.Vertices, r.Vertices)
	assert.Equal(t, m.VertexRefs, r.VertexRefs)
	assert.Equal(t, m.Count(Tet), r.Count(Tet))
	assert.Equal(t, m.Count(Triangle), r.Count(Triangle))
	assert.Equal(t, 48, r.CountTag(3))
	assert.Equal(t, []int{3}, r.Tags())

	n, err := CountVertices(path)
	require.NoError(t, err)
	assert.Equal(t, 27, n)

	// A second write of the read mesh is byte identical
	path2 := filepath.Join(dir, "cube2.mesh")
	require.NoError(t, WriteMedit(path2, r))
	b1, _ := os.ReadFile(path)
	b2, _ := os.ReadFile(path2)
	assert.Equal(t, b1, b2)
}

func TestReadMeditSections(t *testing.T) {
	dir := t.TempDir()
	text := `MeshVersionFormatted 2
# comment line
Dimension
3
Vertices
4
0 0 0 1
1 0 0 1
0 1 0 1
0 0 1 1 # trailing comment
Edges
1
1 2 0
Corners 1 1
Tetrahedra
1
1 2 3 4 7
RequiredTetrahedra
1
1
RequiredQuadrilaterals
0
End
`
	path := filepath.Join(dir, "tet.mesh")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	m, err := ReadMedit(path)
	require.NoError(t, err)
	assert.Equal(t, 4, m.NumVertices)
	assert.Equal(t, []int{0, 1, 2, 3}, m.EtoV[0])
	assert.Equal(t, 7, m.ElementTags[0])

	bad := []string{
		"MeshVersionFormatted 2\nDimension 3\nVertices\n2\n0 0 0 1\n",
		"MeshVersionFormatted 2\nDimension 3\nBogus 1\nEnd\n",
		"Dimension 3\nEnd\n",
		"MeshVersionFormatted 2\nDimension 3\nVertices\n1\n0 0 0 1\nTetrahedra\n1\n1 2 3 4 1\nEnd\n",
	}
	for i, text := range bad {
		path := filepath.Join(dir, "bad.mesh")
		require.NoError(t, os.WriteFile(path, []byte(text), 0644))
		_, err := ReadMedit(path)
		var fe *types.FormatError
		assert.True(t, errors.As(err, &fe), "case %d: %v", i, err)
	}
}

func TestSolRoundTrip(t *testing.T) {
	dir := t.TempDir()
	field := []float64{-0.5, 0, 1e-300, 0.1 + 0.2, math.Pi, -1234.5678e10}
	path := filepath.Join(dir, "field.sol")
	require.NoError(t, WriteSolFile(path, len(field), field))

	read, err := ReadSolFile(path)
	require.NoError(t, err)
	assert.Equal(t, field, read)

	// Declared count equals the number of value lines
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(text), "\n")
	var start int
	for i, l := range lines {
		if l == "1 1" {
			start = i + 2
		}
	}
	assert.Equal(t, "6", lines[start-3])
	values := 0
	for _, l := range lines[start:] {
		if l == "" || l == "End" {
			break
		}
		values++
	}
	assert.Equal(t, len(field), values)
}

func TestSolLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.sol")
	err := WriteSolFile(path, 4, []float64{1, 2, 3})
	var fe *types.FormatError
	require.True(t, errors.As(err, &fe))
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "no temporary files left behind")

	err = WriteSolFile(path, 1, []float64{math.NaN()})
	assert.True(t, errors.As(err, &fe))
}

func TestReadSolErrors(t *testing.T) {
	dir := t.TempDir()
	header := "MeshVersionFormatted 2\nDimension 3\nSolAtVertices\n"
	bad := []string{
		header + "-2\n1 1\nEnd\n",
		header + "3\n1 1\n0.5\n1.5\n",
		header + "1000000000000\n1 1\n1\nEnd\n",
		header + "1\n2 1 1\n0\n0\nEnd\n",
		"MeshVersionFormatted 2\nDimension 3\nEnd\n",
	}
	for i, text := range bad {
		path := filepath.Join(dir, "bad.sol")
		require.NoError(t, os.WriteFile(path, []byte(text), 0644))
		_, err := ReadSolFile(path)
		var fe *types.FormatError
		assert.True(t, errors.As(err, &fe), "case %d: %v", i, err)
	}
}

func TestSubdomainIdempotent(t *testing.T) {
	m := UnitCubeMesh(2, 2)
	// Tag the tetrahedra in the lower half with 3
	for i, et := range m.ElementTypes {
		if et != Tet {
			continue
		}
		var z float64
		for _, v := range m.EtoV[i] {
			z += m.Vertices[v][2]
		}
		if z/4 < 0.5 {
			m.ElementTags[i] = 3
		}
	}
	sub := m.Subdomain(3)
	assert.Equal(t, 24, sub.Count(Tet))
	assert.Equal(t, 18, sub.NumVertices)
	again := sub.Subdomain(3)
	assert.Equal(t, sub.Vertices, again.Vertices)
	assert.Equal(t, sub.EtoV, again.EtoV)
	assert.Equal(t, sub.ElementTags, again.ElementTags)

	empty := m.Subdomain(9)
	assert.Zero(t, empty.NumElements)
}

func TestReadPLY(t *testing.T) {
	dir := t.TempDir()
	ascii := `ply
format ascii 1.0
comment unit square split in two
element vertex 4
property float x
property float y
property float z
property uchar red
element face 1
property list uchar int vertex_indices
end_header
0 0 0 255
1 0 0 255
1 1 0 255
0 1 0 255
4 0 1 2 3
`
	path := filepath.Join(dir, "square.ply")
	require.NoError(t, os.WriteFile(path, []byte(ascii), 0644))
	s, err := ReadSurface(path)
	require.NoError(t, err)
	assert.Len(t, s.Vertices, 4)
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, s.Triangles)

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var buf bytes.Buffer
		name := "binary_little_endian"
		if order == binary.BigEndian {
			name = "binary_big_endian"
		}
		buf.WriteString("ply\nformat " + name + " 1.0\nelement vertex 3\nproperty double x\n" +
			"property double y\nproperty double z\nelement face 1\nproperty list uchar uint vertex_indices\nend_header\n")
		for _, v := range [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
			require.NoError(t, binary.Write(&buf, order, v))
		}
		buf.WriteByte(3)
		require.NoError(t, binary.Write(&buf, order, [3]uint32{0, 1, 2}))
		path := filepath.Join(dir, name+".ply")
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

		s, err := ReadPLY(path)
		require.NoError(t, err, name)
		assert.Equal(t, r3.Vec{X: 1}, s.Vertices[1])
		assert.Equal(t, [][3]int{{0, 1, 2}}, s.Triangles)
	}

	// Corrupt list lengths are format errors
	header := "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\n" +
		"property float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n" +
		"0 0 0\n1 0 0\n0 1 0\n"
	for i, face := range []string{"-1 0 1 2\n", "1e9 0 1 2\n", "2.5 0 1 2\n", "3 0 1 7\n"} {
		path := filepath.Join(dir, "corrupt.ply")
		require.NoError(t, os.WriteFile(path, []byte(header+face), 0644))
		_, err := ReadPLY(path)
		var fe *types.FormatError
		assert.True(t, errors.As(err, &fe), "case %d: %v", i, err)
	}
}

func TestSTLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sphere := UnitSphereSurface(1)
	path := filepath.Join(dir, "sphere.stl")
	require.NoError(t, WriteSTL(path, sphere))

	s, err := ReadSurface(path)
	require.NoError(t, err)
	assert.Len(t, s.Triangles, len(sphere.Triangles))
	// Coincident corners are welded back to shared vertices
	assert.Len(t, s.Vertices, len(sphere.Vertices))
}

func TestSurfaceFromMesh(t *testing.T) {
	m := UnitCubeMesh(1, 4)
	s := SurfaceFromMesh(m)
	assert.Len(t, s.Triangles, 12)
	assert.Equal(t, 4, s.Tags[0])

	tets := UnitCubeMesh(1, 4)
	var onlyTets []int
	for i, et := range tets.ElementTypes {
		if et == Tet {
			onlyTets = append(onlyTets, i)
		}
	}
	tetMesh := NewMesh()
	tetMesh.Vertices, tetMesh.VertexRefs, tetMesh.NumVertices = tets.Vertices, tets.VertexRefs, tets.NumVertices
	for _, i := range onlyTets {
		tetMesh.AddElement(Tet, tets.EtoV[i], 4)
	}
	assert.Len(t, SurfaceFromMesh(tetMesh).Triangles, 12)

	lo, hi := s.Bounds()
	assert.Equal(t, r3.Vec{}, lo)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, hi)
}
