package adapt

import (
	"fmt"

	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

// WriteDirective writes the level-set field of the mesh at meshPath next to it and returns
// the directive path. The field must hold one value per mesh vertex.
func WriteDirective(meshPath string, field []float64) (string, error) {
	path := DirectiveName(meshPath)
	return path, writeDirective(meshPath, path, field)
}

func writeDirective(meshPath, path string, field []float64) error {
	n, err := mesh.CountVertices(meshPath)
	if err != nil {
		return err
	}
	if n != len(field) {
		return &types.FormatError{Path: path,
			Err: fmt.Errorf("field has %d values, %s has %d vertices", len(field), meshPath, n)}
	}
	return mesh.WriteSolFile(path, n, field)
}
