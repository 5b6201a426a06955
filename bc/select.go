package bc

import (
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/utils"
)

// Box is an axis aligned selection volume, bounds inclusive within utils.NODETOL
type Box struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

func (b Box) Contains(x []float64) bool {
	for i := 0; i < 3; i++ {
		if x[i] < b.Min[i]-utils.NODETOL || x[i] > b.Max[i]+utils.NODETOL {
			return false
		}
	}
	return true
}

// SelectBox returns the vertices of m inside box in ascending order, only those on the
// skin when boundaryOnly is set
func SelectBox(m *mesh.Mesh, box Box, boundaryOnly bool) []int {
	var nodes []int
	if boundaryOnly {
		for _, v := range m.BoundaryVertices() {
			if box.Contains(m.Vertices[v]) {
				nodes = append(nodes, v)
			}
		}
		return nodes
	}
	for v, x := range m.Vertices {
		if box.Contains(x) {
			nodes = append(nodes, v)
		}
	}
	return nodes
}

// DesignDomainFromSkin marks every skin vertex of m immutable, so the solver keeps the
// original boundary shape while adapting the interior
func DesignDomainFromSkin(m *mesh.Mesh) []DesignNode {
	skin := m.BoundaryVertices()
	nodes := make([]DesignNode, len(skin))
	for i, v := range skin {
		nodes[i] = DesignNode{Node: v, Domain: Immutable}
	}
	return nodes
}
