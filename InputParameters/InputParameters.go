package InputParameters

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/meshadapt/adapt"
	"github.com/notargets/meshadapt/bc"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/optimizer"
	"github.com/notargets/meshadapt/types"
)

// Parameters obtained from the YAML run description
type RunParameters struct {
	Title      string  `json:"Title"`
	Mesh       string  `json:"Mesh"`    // Initial volume mesh
	Surface    string  `json:"Surface"` // Target surface
	Output     string  `json:"Output"`
	Hausd      float64 `json:"Hausd"`
	Hgrad      float64 `json:"Hgrad"`
	Hmin       float64 `json:"Hmin"`
	Hmax       float64 `json:"Hmax"`
	Iterations int     `json:"Iterations"`
	MemoryMB   int     `json:"MemoryMB"`
	Subdomain  int     `json:"Subdomain"` // Zero skips extraction
	Engine     string  `json:"Engine"`
	Debug      bool    `json:"Debug"`

	Optimize *OptimizeParameters `json:"Optimize,omitempty"`
	BCs      map[string][]Region `json:"BCs,omitempty"` // Key is the BC kind: dirichlet, neumann or design
}

type OptimizeParameters struct {
	MaxTrials        int              `json:"MaxTrials"`
	Tolerance        float64          `json:"Tolerance"`
	Lower            adapt.Parameters `json:"Lower"`
	Upper            adapt.Parameters `json:"Upper"`
	Workspace        string           `json:"Workspace"`
	SaveIntermediate bool             `json:"SaveIntermediate"`
}

// Region selects the mesh nodes inside a box. Vector is the displacement or force, Domain
// the design domain value.
type Region struct {
	Name         string     `json:"Name"`
	Min          [3]float64 `json:"Min"`
	Max          [3]float64 `json:"Max"`
	BoundaryOnly bool       `json:"BoundaryOnly"`
	Vector       [3]float64 `json:"Vector"`
	Domain       int        `json:"Domain"`
}

// NewRunParameters returns the defaults used for anything a file leaves out
func NewRunParameters() *RunParameters {
	p := adapt.DefaultParameters()
	return &RunParameters{
		Hausd:      p.Hausd,
		Hgrad:      p.Hgrad,
		Hmin:       p.Hmin,
		Hmax:       p.Hmax,
		Iterations: adapt.DefaultIterations,
		MemoryMB:   adapt.DefaultMemoryMB,
		Subdomain:  adapt.DefaultSubdomain,
	}
}

func (rp *RunParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, rp); err != nil {
		return err
	}
	if rp.Optimize != nil {
		b := optimizer.DefaultBounds()
		if rp.Optimize.Lower == (adapt.Parameters{}) {
			rp.Optimize.Lower = b.Lower
		}
		if rp.Optimize.Upper == (adapt.Parameters{}) {
			rp.Optimize.Upper = b.Upper
		}
	}
	for kind := range rp.BCs {
		if types.NewBCFLAG(kind) == types.BC_None {
			return fmt.Errorf("unknown boundary condition kind %q", kind)
		}
	}
	return nil
}

// ReadFile parses a run description on top of the defaults
func ReadFile(path string) (*RunParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rp := NewRunParameters()
	if err = rp.Parse(data); err != nil {
		return nil, &types.FormatError{Path: path, Err: err}
	}
	return rp, nil
}

func (rp *RunParameters) Params() adapt.Parameters {
	return adapt.Parameters{Hausd: rp.Hausd, Hgrad: rp.Hgrad, Hmin: rp.Hmin, Hmax: rp.Hmax}
}

func (rp *RunParameters) Bounds() optimizer.Bounds {
	if rp.Optimize == nil {
		return optimizer.DefaultBounds()
	}
	return optimizer.Bounds{Lower: rp.Optimize.Lower, Upper: rp.Optimize.Upper}
}

func (rp *RunParameters) kinds() []string {
	keys := make([]string, len(rp.BCs))
	i := 0
	for k := range rp.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	return keys
}

// BuildSet selects the nodes of every BC region on m. An empty region is an error.
func (rp *RunParameters) BuildSet(name string, m *mesh.Mesh) (*bc.Set, error) {
	s := bc.NewSet(name, m)
	s.Mesh = rp.Mesh
	for _, kind := range rp.kinds() {
		flag := types.NewBCFLAG(kind)
		for _, r := range rp.BCs[kind] {
			nodes := bc.SelectBox(m, bc.Box{Min: r.Min, Max: r.Max}, r.BoundaryOnly)
			if len(nodes) == 0 {
				return nil, &types.GeometryError{Op: "select " + flag.String() + " region " + r.Name, Path: rp.Mesh,
					Err: fmt.Errorf("no nodes inside box %v - %v", r.Min, r.Max)}
			}
			switch flag {
			case types.BC_Dirichlet:
				s.AddDirichlet(nodes, r.Vector)
			case types.BC_Neumann:
				s.AddNeumann(nodes, r.Vector)
			case types.BC_Design:
				s.AddDesign(nodes, bc.DesignDomain(r.Domain))
			}
		}
	}
	return s, s.Validate(m)
}

func (rp *RunParameters) Print() { rp.Fprint(os.Stdout) }

func (rp *RunParameters) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", rp.Title)
	fmt.Fprintf(w, "[%s]\t\t= Mesh\n", rp.Mesh)
	fmt.Fprintf(w, "[%s]\t\t= Surface\n", rp.Surface)
	fmt.Fprintf(w, "%8.5g\t\t= Hausd\n", rp.Hausd)
	fmt.Fprintf(w, "%8.5g\t\t= Hgrad\n", rp.Hgrad)
	fmt.Fprintf(w, "%8.5g\t\t= Hmin\n", rp.Hmin)
	fmt.Fprintf(w, "%8.5g\t\t= Hmax\n", rp.Hmax)
	fmt.Fprintf(w, "[%d]\t\t\t= Iterations\n", rp.Iterations)
	fmt.Fprintf(w, "[%d]\t\t\t= Subdomain\n", rp.Subdomain)
	if rp.Optimize != nil {
		fmt.Fprintf(w, "[%d]\t\t\t= Optimize MaxTrials\n", rp.Optimize.MaxTrials)
		fmt.Fprintf(w, "Lower = %s\n", rp.Optimize.Lower)
		fmt.Fprintf(w, "Upper = %s\n", rp.Optimize.Upper)
	}
	for _, key := range rp.kinds() {
		fmt.Fprintf(w, "BCs[%s] = %v\n", key, rp.BCs[key])
	}
}
