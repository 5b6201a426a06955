package distance

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

const leafSize = 4

// Closest feature of a triangle
type feature uint8

const (
	onFace feature = iota
	onVertexA
	onVertexB
	onVertexC
	onEdgeAB
	onEdgeBC
	onEdgeCA
)

type node struct {
	box         r3.Box
	left, right int // child nodes, -1 for leaves
	start, end  int // leaf range into Evaluator.order
}

// Evaluator computes signed distances to a closed triangulated surface.
// Distances are positive outside the surface and negative inside.
type Evaluator struct {
	vertices    []r3.Vec
	triangles   [][3]int
	faceNormals []r3.Vec
	vertNormals []r3.Vec
	edgeNormals map[types.EdgeKey]r3.Vec
	order       []int // triangle indices in tree order
	nodes       []node
}

// New builds an evaluator over the non degenerate triangles of s
func New(s *mesh.Surface) (*Evaluator, error) {
	geomErr := func(format string, args ...any) error {
		return &types.GeometryError{Op: "signed distance", Err: fmt.Errorf(format, args...)}
	}
	if s == nil || len(s.Triangles) == 0 {
		return nil, geomErr("surface has no triangles")
	}
	lo, hi := s.Bounds()
	if r3.Norm(r3.Sub(hi, lo)) == 0 || math.IsNaN(r3.Norm(r3.Sub(hi, lo))) {
		return nil, geomErr("surface has zero extent")
	}
	ev := &Evaluator{
		vertices:    s.Vertices,
		vertNormals: make([]r3.Vec, len(s.Vertices)),
		edgeNormals: make(map[types.EdgeKey]r3.Vec),
	}
	for i, tri := range s.Triangles {
		for _, v := range tri {
			if v < 0 || v >= len(s.Vertices) {
				return nil, geomErr("triangle %d references vertex %d, surface has %d vertices", i, v, len(s.Vertices))
			}
		}
		a, b, c := s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		l := r3.Norm(n)
		if l == 0 || math.IsNaN(l) {
			continue
		}
		n = r3.Scale(1/l, n)
		ev.triangles = append(ev.triangles, tri)
		ev.faceNormals = append(ev.faceNormals, n)

		// Angle weighted pseudo normals
		corners := [3]r3.Vec{a, b, c}
		for j := 0; j < 3; j++ {
			e1 := r3.Sub(corners[(j+1)%3], corners[j])
			e2 := r3.Sub(corners[(j+2)%3], corners[j])
			angle := math.Acos(clamp(r3.Dot(e1, e2)/(r3.Norm(e1)*r3.Norm(e2)), -1, 1))
			ev.vertNormals[tri[j]] = r3.Add(ev.vertNormals[tri[j]], r3.Scale(angle, n))
		}
		for _, ek := range types.NewFaceKey(tri).Edges() {
			ev.edgeNormals[ek] = r3.Add(ev.edgeNormals[ek], n)
		}
	}
	if len(ev.triangles) == 0 {
		return nil, geomErr("all %d surface triangles have zero area", len(s.Triangles))
	}
	ev.order = make([]int, len(ev.triangles))
	for i := range ev.order {
		ev.order[i] = i
	}
	ev.build(0, len(ev.order))
	return ev, nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func (ev *Evaluator) triBox(t int) r3.Box {
	tri := ev.triangles[t]
	a, b, c := ev.vertices[tri[0]], ev.vertices[tri[1]], ev.vertices[tri[2]]
	return r3.Box{
		Min: r3.Vec{X: math.Min(a.X, math.Min(b.X, c.X)), Y: math.Min(a.Y, math.Min(b.Y, c.Y)), Z: math.Min(a.Z, math.Min(b.Z, c.Z))},
		Max: r3.Vec{X: math.Max(a.X, math.Max(b.X, c.X)), Y: math.Max(a.Y, math.Max(b.Y, c.Y)), Z: math.Max(a.Z, math.Max(b.Z, c.Z))},
	}
}

func union(a, b r3.Box) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y), Z: math.Min(a.Min.Z, b.Min.Z)},
		Max: r3.Vec{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y), Z: math.Max(a.Max.Z, b.Max.Z)},
	}
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// build splits order[start:end] at the median centroid along the longest box axis
func (ev *Evaluator) build(start, end int) int {
	box := ev.triBox(ev.order[start])
	for _, t := range ev.order[start+1 : end] {
		box = union(box, ev.triBox(t))
	}
	id := len(ev.nodes)
	ev.nodes = append(ev.nodes, node{box: box, left: -1, right: -1, start: start, end: end})
	if end-start <= leafSize {
		return id
	}
	size := r3.Sub(box.Max, box.Min)
	axis := 0
	if size.Y > size.X {
		axis = 1
	}
	if size.Z > component(size, axis) {
		axis = 2
	}
	centroid := func(t int) float64 {
		tri := ev.triangles[t]
		return component(ev.vertices[tri[0]], axis) + component(ev.vertices[tri[1]], axis) + component(ev.vertices[tri[2]], axis)
	}
	sub := ev.order[start:end]
	sort.SliceStable(sub, func(i, j int) bool { return centroid(sub[i]) < centroid(sub[j]) })
	mid := start + (end-start)/2
	left := ev.build(start, mid)
	right := ev.build(mid, end)
	ev.nodes[id].left, ev.nodes[id].right = left, right
	return id
}

func minDistBox(p r3.Vec, bb r3.Box) float64 {
	dx := math.Max(0, math.Max(p.X-bb.Max.X, bb.Min.X-p.X))
	dy := math.Max(0, math.Max(p.Y-bb.Max.Y, bb.Min.Y-p.Y))
	dz := math.Max(0, math.Max(p.Z-bb.Max.Z, bb.Min.Z-p.Z))
	return dx*dx + dy*dy + dz*dz
}

// closest returns the point of triangle t nearest to p and the feature it lies on
func (ev *Evaluator) closest(p r3.Vec, t int) (r3.Vec, feature) {
	tri := ev.triangles[t]
	a, b, c := ev.vertices[tri[0]], ev.vertices[tri[1]], ev.vertices[tri[2]]
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a, onVertexA
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b, onVertexB
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab)), onEdgeAB
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c, onVertexC
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac)), onEdgeCA
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b))), onEdgeBC
	}
	denom := 1 / (va + vb + vc)
	return r3.Add(a, r3.Add(r3.Scale(vb*denom, ab), r3.Scale(vc*denom, ac))), onFace
}

func (ev *Evaluator) pseudoNormal(t int, f feature) r3.Vec {
	tri := ev.triangles[t]
	switch f {
	case onVertexA:
		return ev.vertNormals[tri[0]]
	case onVertexB:
		return ev.vertNormals[tri[1]]
	case onVertexC:
		return ev.vertNormals[tri[2]]
	case onEdgeAB:
		return ev.edgeNormals[types.NewEdgeKey([2]int{tri[0], tri[1]})]
	case onEdgeBC:
		return ev.edgeNormals[types.NewEdgeKey([2]int{tri[1], tri[2]})]
	case onEdgeCA:
		return ev.edgeNormals[types.NewEdgeKey([2]int{tri[2], tri[0]})]
	default:
		return ev.faceNormals[t]
	}
}

// Evaluate returns the signed distance from p to the surface
func (ev *Evaluator) Evaluate(p r3.Vec) float64 {
	var (
		best     = math.Inf(1)
		bestTri  = -1
		bestFeat feature
		bestPt   r3.Vec
		stack    = []int{0}
	)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := &ev.nodes[id]
		if minDistBox(p, nd.box) > best {
			continue
		}
		if nd.left < 0 {
			for _, t := range ev.order[nd.start:nd.end] {
				q, f := ev.closest(p, t)
				if d := r3.Norm2(r3.Sub(p, q)); d < best {
					best, bestTri, bestFeat, bestPt = d, t, f, q
				}
			}
			continue
		}
		// Nearer child is popped first
		dl := minDistBox(p, ev.nodes[nd.left].box)
		dr := minDistBox(p, ev.nodes[nd.right].box)
		if dl < dr {
			stack = append(stack, nd.right, nd.left)
		} else {
			stack = append(stack, nd.left, nd.right)
		}
	}
	if bestTri < 0 {
		return math.NaN()
	}
	d := math.Sqrt(best)
	if d == 0 {
		return 0
	}
	if r3.Dot(r3.Sub(p, bestPt), ev.pseudoNormal(bestTri, bestFeat)) < 0 {
		return -d
	}
	return d
}

// Field evaluates the signed distance at every vertex of m
func (ev *Evaluator) Field(m *mesh.Mesh) ([]float64, error) {
	field := make([]float64, m.NumVertices)
	for i, v := range m.Vertices {
		field[i] = ev.Evaluate(r3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}
	if i := utils.FirstNonFinite(field); i >= 0 {
		return nil, &types.GeometryError{Op: "signed distance",
			Err: fmt.Errorf("non finite distance %v at vertex %d", field[i], i+1)}
	}
	return field, nil
}

// Compute returns the signed distance from every vertex of m to s
func Compute(m *mesh.Mesh, s *mesh.Surface) ([]float64, error) {
	ev, err := New(s)
	if err != nil {
		return nil, err
	}
	return ev.Field(m)
}
