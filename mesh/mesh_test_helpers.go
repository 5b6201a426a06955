package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshadapt/types"
)

// UnitCubeMesh returns the cube [0,1]^3 split into n^3 cells of six positively oriented
// tetrahedra each, all tagged with ref. The boundary triangles are included with the same ref.
func UnitCubeMesh(n, ref int) *Mesh {
	m := NewMesh()
	id := func(i, j, k int) int { return i + (n+1)*(j+(n+1)*k) }
	h := 1 / float64(n)
	for k := 0; k <= n; k++ {
		for j := 0; j <= n; j++ {
			for i := 0; i <= n; i++ {
				m.AddVertex(float64(i)*h, float64(j)*h, float64(k)*h, 0)
			}
		}
	}
	// Kuhn subdivision, one tetrahedron per axis ordering
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				for _, p := range perms {
					c := [3]int{i, j, k}
					tet := []int{id(c[0], c[1], c[2])}
					for _, axis := range p {
						c[axis]++
						tet = append(tet, id(c[0], c[1], c[2]))
					}
					elem := m.AddElement(Tet, tet, ref)
					if m.TetVolume(elem) < 0 {
						m.EtoV[elem][1], m.EtoV[elem][2] = m.EtoV[elem][2], m.EtoV[elem][1]
					}
				}
			}
		}
	}
	skin, _ := m.Skin()
	for _, tri := range skin {
		m.AddElement(Triangle, tri[:], ref)
	}
	return m
}

// SphereSurface returns an icosphere of the given radius and center, refined subdiv times,
// with outward facing triangles
func SphereSurface(center r3.Vec, radius float64, subdiv int) *Surface {
	t := (1 + math.Sqrt(5)) / 2
	verts := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range verts {
		verts[i] = r3.Unit(verts[i])
	}
	tris := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for s := 0; s < subdiv; s++ {
		mid := make(map[types.EdgeKey]int)
		midpoint := func(a, b int) int {
			key := types.NewEdgeKey([2]int{a, b})
			if v, ok := mid[key]; ok {
				return v
			}
			verts = append(verts, r3.Unit(r3.Add(verts[a], verts[b])))
			mid[key] = len(verts) - 1
			return len(verts) - 1
		}
		refined := make([][3]int, 0, 4*len(tris))
		for _, tri := range tris {
			a := midpoint(tri[0], tri[1])
			b := midpoint(tri[1], tri[2])
			c := midpoint(tri[2], tri[0])
			refined = append(refined,
				[3]int{tri[0], a, c}, [3]int{tri[1], b, a}, [3]int{tri[2], c, b}, [3]int{a, b, c})
		}
		tris = refined
	}
	for i := range verts {
		verts[i] = r3.Add(center, r3.Scale(radius, verts[i]))
	}
	return &Surface{Vertices: verts, Triangles: tris}
}

// UnitSphereSurface returns the sphere of radius 0.5 inscribed in the unit cube
func UnitSphereSurface(subdiv int) *Surface {
	return SphereSurface(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 0.5, subdiv)
}
