package adapt

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/notargets/meshadapt/engine"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

// Extractor isolates one tagged region of a volume mesh
type Extractor struct {
	Engine engine.Engine
	Logger logrus.FieldLogger
	Output io.Writer
	Debug  bool
}

// Extract writes the tetrahedra of input carrying tag to output, ExtractedName(input) when
// output is empty, and returns the output path. A tag that selects nothing is an
// EmptySelectionError and the engine is never invoked.
func (x *Extractor) Extract(ctx context.Context, input, output string, tag int) (string, error) {
	log := logger(x.Logger)
	if output == "" {
		output = ExtractedName(input)
	}
	if filepath.Clean(output) == filepath.Clean(input) {
		return "", &types.GeometryError{Op: "extract", Path: input, Err: fmt.Errorf("output would overwrite the input mesh")}
	}
	m, err := mesh.ReadMedit(input)
	if err != nil {
		return "", err
	}
	selected := m.CountTag(tag)
	if selected == 0 {
		return "", &types.EmptySelectionError{Path: input, Tag: tag}
	}

	res, err := x.Engine.Extract(ctx, engine.ExtractRequest{Input: input, Output: output, Tag: tag, Debug: x.Debug})
	echo(x.Output, res)
	if err != nil {
		return "", err
	}

	sub, err := mesh.ReadMedit(output)
	if err != nil {
		utils.RemoveFiles(output)
		return "", err
	}
	if n := sub.Count(mesh.Tet); n == 0 || n > m.Count(mesh.Tet) {
		utils.RemoveFiles(output)
		return "", &types.AdaptationError{Op: "verify extraction", Command: res.Command,
			Stdout: res.Stdout, Stderr: res.Stderr,
			Err: fmt.Errorf("extracted %d tetrahedra from %d", n, m.Count(mesh.Tet))}
	}
	log.WithFields(logrus.Fields{
		"input": input, "output": output, "tag": tag,
		"selected": selected, "tetrahedra": sub.Count(mesh.Tet),
	}).Info("extracted subdomain")
	return output, nil
}
