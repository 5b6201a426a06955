// Package bc holds the boundary condition node sets handed to the finite element solver
// together with the volume mesh they were selected on.
package bc

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

// DesignDomain is the per node mutability used by the solver's adaptation. Values match OpenCMISS.
type DesignDomain int

const (
	Immutable DesignDomain = -1
	Fixed     DesignDomain = 0
	Free      DesignDomain = 1
)

func (d DesignDomain) String() string {
	switch d {
	case Immutable:
		return "Immutable"
	case Fixed:
		return "Fixed"
	case Free:
		return "Free"
	default:
		return fmt.Sprintf("DesignDomain(%d)", int(d))
	}
}

// DirichletNode fully constrains the displacement of a node
type DirichletNode struct {
	Node         int        `json:"node"`
	Displacement [3]float64 `json:"displacement"`
}

// NeumannNode applies a load vector at a node
type NeumannNode struct {
	Node  int        `json:"node"`
	Force [3]float64 `json:"force"`
}

type DesignNode struct {
	Node   int          `json:"design_nodes"`
	Domain DesignDomain `json:"design_domain"`
}

// Set is a named collection of boundary conditions on one mesh. Fingerprint identifies that
// mesh; a set whose fingerprint no longer matches must be regenerated.
type Set struct {
	Name        string          `json:"name"`
	Mesh        string          `json:"mesh,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	Dirichlet   []DirichletNode `json:"dirichlet,omitempty"`
	Neumann     []NeumannNode   `json:"neumann,omitempty"`
	Design      []DesignNode    `json:"design,omitempty"`
}

var ErrStale = errors.New("boundary condition set is stale: mesh has changed")

// Fingerprint hashes the vertex coordinates and tetrahedron connectivity of m
func Fingerprint(m *mesh.Mesh) string {
	h := sha256.New()
	var buf [8]byte
	put := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		h.Write(buf[:])
	}
	put(uint64(m.NumVertices))
	for _, v := range m.Vertices {
		for _, x := range v {
			put(math.Float64bits(x))
		}
	}
	for i, et := range m.ElementTypes {
		if et != mesh.Tet {
			continue
		}
		for _, v := range m.EtoV[i] {
			put(uint64(v))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewSet returns an empty set bound to m
func NewSet(name string, m *mesh.Mesh) *Set {
	return &Set{Name: name, Fingerprint: Fingerprint(m)}
}

// AddDirichlet constrains nodes to displacement
func (s *Set) AddDirichlet(nodes []int, displacement [3]float64) {
	for _, n := range nodes {
		s.Dirichlet = append(s.Dirichlet, DirichletNode{Node: n, Displacement: displacement})
	}
}

// AddNeumann applies force at each of nodes
func (s *Set) AddNeumann(nodes []int, force [3]float64) {
	for _, n := range nodes {
		s.Neumann = append(s.Neumann, NeumannNode{Node: n, Force: force})
	}
}

// AddDesign sets the design domain of nodes
func (s *Set) AddDesign(nodes []int, domain DesignDomain) {
	for _, n := range nodes {
		s.Design = append(s.Design, DesignNode{Node: n, Domain: domain})
	}
}

// Nodes returns the sorted, distinct nodes of one kind
func (s *Set) Nodes(kind types.BCFLAG) []int {
	var nodes []int
	switch kind {
	case types.BC_Dirichlet:
		for _, d := range s.Dirichlet {
			nodes = append(nodes, d.Node)
		}
	case types.BC_Neumann:
		for _, n := range s.Neumann {
			nodes = append(nodes, n.Node)
		}
	case types.BC_Design:
		for _, d := range s.Design {
			nodes = append(nodes, d.Node)
		}
	}
	sort.Ints(nodes)
	out := nodes[:0]
	for i, n := range nodes {
		if i == 0 || n != nodes[i-1] {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks s was derived from m and every node index is a vertex of m
func (s *Set) Validate(m *mesh.Mesh) error {
	if s.Fingerprint != Fingerprint(m) {
		return fmt.Errorf("%s: %w", s.Name, ErrStale)
	}
	check := func(kind types.BCFLAG, node int) error {
		if node < 0 || node >= m.NumVertices {
			return &types.GeometryError{Op: "validate boundary conditions", Path: s.Mesh,
				Err: fmt.Errorf("%s node %d outside mesh of %d vertices", kind, node, m.NumVertices)}
		}
		return nil
	}
	for _, d := range s.Dirichlet {
		if err := check(types.BC_Dirichlet, d.Node); err != nil {
			return err
		}
	}
	for _, n := range s.Neumann {
		if err := check(types.BC_Neumann, n.Node); err != nil {
			return err
		}
	}
	for _, d := range s.Design {
		if err := check(types.BC_Design, d.Node); err != nil {
			return err
		}
		if d.Domain < Immutable || d.Domain > Free {
			return &types.GeometryError{Op: "validate boundary conditions", Path: s.Mesh,
				Err: fmt.Errorf("node %d has invalid design domain %d", d.Node, d.Domain)}
		}
	}
	return nil
}
