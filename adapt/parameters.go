package adapt

import (
	"fmt"
	"math"

	"github.com/notargets/meshadapt/types"
)

// Defaults used by the adapt command
const (
	DefaultHausd      = 1e-2
	DefaultHgrad      = 1.3
	DefaultHmin       = 1.0
	DefaultHmax       = 100.0
	DefaultSubdomain  = 3
	DefaultMemoryMB   = 16000
	DefaultIterations = 1
)

// Parameters are the isotropic adaptation controls passed to the engine
type Parameters struct {
	Hausd float64 `json:"hausd"` // Maximum boundary approximation error
	Hgrad float64 `json:"hgrad"` // Size gradation between adjacent elements
	Hmin  float64 `json:"hmin"`  // Minimum edge length
	Hmax  float64 `json:"hmax"`  // Maximum edge length
}

func DefaultParameters() Parameters {
	return Parameters{Hausd: DefaultHausd, Hgrad: DefaultHgrad, Hmin: DefaultHmin, Hmax: DefaultHmax}
}

// Validate enforces hausd > 0, hgrad > 1 and 0 < hmin <= hmax
func (p Parameters) Validate() error {
	var err error
	for _, v := range p.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err = fmt.Errorf("%w: non finite value in %v", types.ErrInvalidParameters, p)
		}
	}
	switch {
	case err != nil:
	case p.Hausd <= 0:
		err = fmt.Errorf("%w: hausd %g must be positive", types.ErrInvalidParameters, p.Hausd)
	case p.Hgrad <= 1:
		err = fmt.Errorf("%w: hgrad %g must exceed 1", types.ErrInvalidParameters, p.Hgrad)
	case p.Hmin <= 0:
		err = fmt.Errorf("%w: hmin %g must be positive", types.ErrInvalidParameters, p.Hmin)
	case p.Hmin > p.Hmax:
		err = fmt.Errorf("%w: hmin %g exceeds hmax %g", types.ErrInvalidParameters, p.Hmin, p.Hmax)
	}
	if err != nil {
		return &types.GeometryError{Op: "validate parameters", Err: err}
	}
	return nil
}

// Vector returns (hausd, hgrad, hmin, hmax)
func (p Parameters) Vector() []float64 {
	return []float64{p.Hausd, p.Hgrad, p.Hmin, p.Hmax}
}

func FromVector(x []float64) Parameters {
	return Parameters{Hausd: x[0], Hgrad: x[1], Hmin: x[2], Hmax: x[3]}
}

func (p Parameters) String() string {
	return fmt.Sprintf("hausd: %g, hgrad: %g, hmin: %g, hmax: %g", p.Hausd, p.Hgrad, p.Hmin, p.Hmax)
}
