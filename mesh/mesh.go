package mesh

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/notargets/meshadapt/types"
)

// ElementType represents the element types carried by a Medit mesh
type ElementType int

const (
	Triangle ElementType = iota
	Tet
)

func (e ElementType) String() string {
	return [...]string{"Triangle", "Tet"}[e]
}

// NumVertices returns the vertex count of one element of this type
func (e ElementType) NumVertices() int {
	switch e {
	case Triangle:
		return 3
	case Tet:
		return 4
	default:
		return 0
	}
}

// Face represents a face of an element
type Face struct {
	Vertices types.FaceKey // Sorted vertex indices
	Element  int           // Parent element
	LocalID  int           // Local face ID within element
}

// Mesh represents a Medit style unstructured mesh of tetrahedra and boundary triangles
type Mesh struct {
	// Geometry
	Vertices   [][]float64 // Vertex coordinates [nvertices][3]
	VertexRefs []int       // Vertex reference per vertex

	// Element data
	EtoV         [][]int       // Element to vertex connectivity [nelems][nverts_per_elem]
	ElementTypes []ElementType // Element type for each element
	ElementTags  []int         // Region/reference tag for each element

	// Connectivity (built on demand, tetrahedra only)
	EToE [][]int // Element to element connectivity, -1 marks a boundary face
	EToF [][]int // Neighbor's local face index, -1 on the boundary

	// Face data
	Faces   []Face
	FaceMap map[types.FaceKey]int

	// Mesh statistics
	NumElements int
	NumVertices int
	NumFaces    int
}

// NewMesh creates an empty mesh
func NewMesh() *Mesh {
	return &Mesh{
		FaceMap: make(map[types.FaceKey]int),
	}
}

// AddVertex appends a vertex and returns its 0-based index
func (m *Mesh) AddVertex(x, y, z float64, ref int) int {
	m.Vertices = append(m.Vertices, []float64{x, y, z})
	m.VertexRefs = append(m.VertexRefs, ref)
	m.NumVertices = len(m.Vertices)
	return m.NumVertices - 1
}

// AddElement appends an element with 0-based vertex indices
func (m *Mesh) AddElement(etype ElementType, verts []int, tag int) int {
	nodes := make([]int, len(verts))
	copy(nodes, verts)
	m.EtoV = append(m.EtoV, nodes)
	m.ElementTypes = append(m.ElementTypes, etype)
	m.ElementTags = append(m.ElementTags, tag)
	m.NumElements = len(m.EtoV)
	return m.NumElements - 1
}

// Count returns the number of elements of the given type
func (m *Mesh) Count(etype ElementType) (n int) {
	for _, et := range m.ElementTypes {
		if et == etype {
			n++
		}
	}
	return
}

// CountTag returns the number of tetrahedra carrying tag
func (m *Mesh) CountTag(tag int) (n int) {
	for i, et := range m.ElementTypes {
		if et == Tet && m.ElementTags[i] == tag {
			n++
		}
	}
	return
}

// Tags returns the distinct tetrahedron tags in ascending order
func (m *Mesh) Tags() (tags []int) {
	seen := make(map[int]bool)
	for i, et := range m.ElementTypes {
		if et == Tet && !seen[m.ElementTags[i]] {
			seen[m.ElementTags[i]] = true
			tags = append(tags, m.ElementTags[i])
		}
	}
	sort.Ints(tags)
	return
}

// Validate checks the arrays are consistent and every element references existing vertices
func (m *Mesh) Validate() error {
	if len(m.Vertices) != m.NumVertices {
		return fmt.Errorf("vertex count mismatch: %d stored, %d declared", len(m.Vertices), m.NumVertices)
	}
	if len(m.EtoV) != m.NumElements || len(m.ElementTypes) != m.NumElements || len(m.ElementTags) != m.NumElements {
		return fmt.Errorf("element arrays have inconsistent lengths")
	}
	for i, verts := range m.EtoV {
		if len(verts) != m.ElementTypes[i].NumVertices() {
			return fmt.Errorf("element %d: %s needs %d vertices, has %d",
				i, m.ElementTypes[i], m.ElementTypes[i].NumVertices(), len(verts))
		}
		for _, v := range verts {
			if v < 0 || v >= m.NumVertices {
				return fmt.Errorf("element %d references vertex %d, mesh has %d vertices", i, v+1, m.NumVertices)
			}
		}
	}
	return nil
}

// BuildConnectivity builds element-to-element and face connectivity for the tetrahedra
func (m *Mesh) BuildConnectivity() {
	m.EToE = make([][]int, m.NumElements)
	m.EToF = make([][]int, m.NumElements)
	m.Faces = m.Faces[:0]
	m.FaceMap = make(map[types.FaceKey]int)

	for elemID := 0; elemID < m.NumElements; elemID++ {
		if m.ElementTypes[elemID] != Tet {
			continue
		}
		faceVertices := GetElementFaces(Tet, m.EtoV[elemID])

		m.EToE[elemID] = []int{-1, -1, -1, -1}
		m.EToF[elemID] = []int{-1, -1, -1, -1}

		for localFaceID, fv := range faceVertices {
			key := types.NewFaceKey([3]int{fv[0], fv[1], fv[2]})

			if faceID, exists := m.FaceMap[key]; exists {
				// Face already exists - this is an interior face
				face := m.Faces[faceID]
				m.EToE[elemID][localFaceID] = face.Element
				m.EToE[face.Element][face.LocalID] = elemID
				m.EToF[elemID][localFaceID] = face.LocalID
				m.EToF[face.Element][face.LocalID] = localFaceID
			} else {
				m.FaceMap[key] = len(m.Faces)
				m.Faces = append(m.Faces, Face{
					Vertices: key,
					Element:  elemID,
					LocalID:  localFaceID,
				})
			}
		}
	}

	m.NumFaces = len(m.Faces)
}

// GetElementFaces returns the face vertices for each element type, counter clockwise seen from
// outside a positively oriented tetrahedron
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	switch elemType {
	case Tet:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]}, // Face 0
			{vertices[0], vertices[1], vertices[3]}, // Face 1
			{vertices[1], vertices[2], vertices[3]}, // Face 2
			{vertices[0], vertices[3], vertices[2]}, // Face 3
		}
	case Triangle:
		return [][]int{{vertices[0], vertices[1], vertices[2]}}
	default:
		return [][]int{}
	}
}

// TetVolume returns the signed volume of tetrahedron elemID
func (m *Mesh) TetVolume(elemID int) float64 {
	v := m.EtoV[elemID]
	a, b, c, d := m.Vertices[v[0]], m.Vertices[v[1]], m.Vertices[v[2]], m.Vertices[v[3]]
	var e1, e2, e3 [3]float64
	for i := 0; i < 3; i++ {
		e1[i] = b[i] - a[i]
		e2[i] = c[i] - a[i]
		e3[i] = d[i] - a[i]
	}
	det := e1[0]*(e2[1]*e3[2]-e2[2]*e3[1]) -
		e1[1]*(e2[0]*e3[2]-e2[2]*e3[0]) +
		e1[2]*(e2[0]*e3[1]-e2[1]*e3[0])
	return det / 6
}

// Skin returns the boundary faces of the tetrahedra oriented outward, in element then local face order.
// The tag of each face is the tag of its parent element.
func (m *Mesh) Skin() (tris [][3]int, tags []int) {
	if m.EToE == nil || len(m.EToE) != m.NumElements {
		m.BuildConnectivity()
	}
	for elemID := 0; elemID < m.NumElements; elemID++ {
		if m.ElementTypes[elemID] != Tet {
			continue
		}
		flip := m.TetVolume(elemID) < 0
		for localFaceID, fv := range GetElementFaces(Tet, m.EtoV[elemID]) {
			if m.EToE[elemID][localFaceID] != -1 {
				continue
			}
			tri := [3]int{fv[0], fv[1], fv[2]}
			if flip {
				tri[1], tri[2] = tri[2], tri[1]
			}
			tris = append(tris, tri)
			tags = append(tags, m.ElementTags[elemID])
		}
	}
	return
}

// BoundaryVertices returns the vertices of the boundary representation in ascending order.
// This is the skin of the tetrahedra, or the triangles when the mesh holds no tetrahedra.
func (m *Mesh) BoundaryVertices() []int {
	var tris [][3]int
	if m.Count(Tet) > 0 {
		tris, _ = m.Skin()
	} else {
		for i, et := range m.ElementTypes {
			if et == Triangle {
				v := m.EtoV[i]
				tris = append(tris, [3]int{v[0], v[1], v[2]})
			}
		}
	}
	used := make([]bool, m.NumVertices)
	for _, tri := range tris {
		for _, v := range tri {
			used[v] = true
		}
	}
	var verts []int
	for v, ok := range used {
		if ok {
			verts = append(verts, v)
		}
	}
	return verts
}

// Subdomain returns the tetrahedra carrying tag and their outward skin as triangles with the same tag.
// Vertices are renumbered in ascending order of their original index, so extracting the same tag
// from the result reproduces it.
func (m *Mesh) Subdomain(tag int) *Mesh {
	sub := NewMesh()
	newIndex := make([]int, m.NumVertices)
	for i := range newIndex {
		newIndex[i] = -1
	}
	var keep []int
	for elemID, et := range m.ElementTypes {
		if et == Tet && m.ElementTags[elemID] == tag {
			keep = append(keep, elemID)
			for _, v := range m.EtoV[elemID] {
				newIndex[v] = 0
			}
		}
	}
	for v := range newIndex {
		if newIndex[v] == 0 {
			newIndex[v] = sub.AddVertex(m.Vertices[v][0], m.Vertices[v][1], m.Vertices[v][2], m.vertexRef(v))
		}
	}
	tets := NewMesh()
	tets.Vertices, tets.VertexRefs, tets.NumVertices = sub.Vertices, sub.VertexRefs, sub.NumVertices
	for _, elemID := range keep {
		old := m.EtoV[elemID]
		tets.AddElement(Tet, []int{newIndex[old[0]], newIndex[old[1]], newIndex[old[2]], newIndex[old[3]]}, tag)
	}
	skin, _ := tets.Skin()
	for _, tri := range skin {
		sub.AddElement(Triangle, tri[:], tag)
	}
	for i := 0; i < tets.NumElements; i++ {
		sub.AddElement(Tet, tets.EtoV[i], tag)
	}
	return sub
}

func (m *Mesh) vertexRef(v int) int {
	if v < len(m.VertexRefs) {
		return m.VertexRefs[v]
	}
	return 0
}

// Bounds returns the axis aligned bounding box [min, max] of the vertices
func (m *Mesh) Bounds() (bb [2][3]float64) {
	for i := 0; i < 3; i++ {
		bb[0][i], bb[1][i] = math.Inf(1), math.Inf(-1)
	}
	for _, v := range m.Vertices {
		for i := 0; i < 3; i++ {
			bb[0][i] = math.Min(bb[0][i], v[i])
			bb[1][i] = math.Max(bb[1][i], v[i])
		}
	}
	return
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics(w io.Writer) {
	fmt.Fprintf(w, "Mesh Statistics:\n")
	fmt.Fprintf(w, "  Vertices: %d\n", m.NumVertices)
	fmt.Fprintf(w, "  Elements: %d\n", m.NumElements)
	fmt.Fprintf(w, "    Tet: %d\n", m.Count(Tet))
	fmt.Fprintf(w, "    Triangle: %d\n", m.Count(Triangle))
	for _, tag := range m.Tags() {
		fmt.Fprintf(w, "  Tag %d: %d tetrahedra\n", tag, m.CountTag(tag))
	}
	if m.Count(Tet) > 0 {
		skin, _ := m.Skin()
		fmt.Fprintf(w, "  Boundary faces: %d\n", len(skin))
	}
	bb := m.Bounds()
	fmt.Fprintf(w, "  Bounds: [%g %g %g] - [%g %g %g]\n",
		bb[0][0], bb[0][1], bb[0][2], bb[1][0], bb[1][1], bb[1][2])
}
