package bc

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ghodss/yaml"

	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

// Save writes s as YAML
func Save(path string, s *Set) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Set{}
	if err = yaml.Unmarshal(data, s); err != nil {
		return nil, &types.FormatError{Path: path, Err: err}
	}
	return s, nil
}

// WriteDesignJSONLines writes one {"design_nodes": n, "design_domain": d} record per line
func WriteDesignJSONLines(path string, nodes []DesignNode) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, n := range nodes {
			if err := enc.Encode(n); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadDesignJSONLines reads the records written by WriteDesignJSONLines
func ReadDesignJSONLines(path string) ([]DesignNode, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var nodes []DesignNode
	dec := json.NewDecoder(file)
	for {
		var n DesignNode
		if err = dec.Decode(&n); err == io.EOF {
			return nodes, nil
		} else if err != nil {
			return nil, &types.FormatError{Path: path, Line: len(nodes) + 1, Err: err}
		}
		nodes = append(nodes, n)
	}
}

// WriteNodeCoordinates writes the coordinates of nodes as comma separated rows
func WriteNodeCoordinates(path string, m *mesh.Mesh, nodes []int) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		for _, n := range nodes {
			if n < 0 || n >= m.NumVertices {
				return fmt.Errorf("node %d outside mesh of %d vertices", n, m.NumVertices)
			}
			x := m.Vertices[n]
			ff := func(f float64) string { return strconv.FormatFloat(f, 'e', 18, 64) }
			if _, err := fmt.Fprintf(w, "%s,%s,%s\n", ff(x[0]), ff(x[1]), ff(x[2])); err != nil {
				return err
			}
		}
		return nil
	})
}

// Export writes the solver inputs for s beside base: <base>_dirichlet_BC.txt,
// <base>_neumann_BC.txt and <base>_design_domain.json, skipping empty kinds
func Export(base string, m *mesh.Mesh, s *Set) ([]string, error) {
	if err := s.Validate(m); err != nil {
		return nil, err
	}
	var written []string
	if nodes := s.Nodes(types.BC_Dirichlet); len(nodes) > 0 {
		path := base + "_dirichlet_BC.txt"
		if err := WriteNodeCoordinates(path, m, nodes); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if nodes := s.Nodes(types.BC_Neumann); len(nodes) > 0 {
		path := base + "_neumann_BC.txt"
		if err := WriteNodeCoordinates(path, m, nodes); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if len(s.Design) > 0 {
		path := base + "_design_domain.json"
		if err := WriteDesignJSONLines(path, s.Design); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
