package optimizer

import (
	"fmt"
	"math"

	"github.com/notargets/meshadapt/adapt"
	"github.com/notargets/meshadapt/types"
)

// Bounds is the search box over (hausd, hgrad, hmin, hmax)
type Bounds struct {
	Lower adapt.Parameters `json:"lower"`
	Upper adapt.Parameters `json:"upper"`
}

func DefaultBounds() Bounds {
	return Bounds{
		Lower: adapt.Parameters{Hausd: 0.01, Hgrad: 1.01, Hmin: 0.1, Hmax: 10},
		Upper: adapt.Parameters{Hausd: 0.5, Hgrad: 1.5, Hmin: 10, Hmax: 200},
	}
}

// DefaultInitial is the starting point of a search with DefaultBounds
func DefaultInitial() adapt.Parameters {
	return adapt.Parameters{Hausd: 0.3, Hgrad: 1.3, Hmin: 1, Hmax: 100}
}

// Validate checks every range is finite and ordered, and that the lower corner keeps
// hausd, hmin positive and hgrad above 1
func (b Bounds) Validate() error {
	lo, hi := b.Lower.Vector(), b.Upper.Vector()
	for i := range lo {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) || math.IsInf(lo[i], 0) || math.IsInf(hi[i], 0) || lo[i] > hi[i] {
			return &types.GeometryError{Op: "validate bounds",
				Err: fmt.Errorf("%w: bad range [%g, %g] for coordinate %d", types.ErrInvalidParameters, lo[i], hi[i], i)}
		}
	}
	if b.Lower.Hausd <= 0 || b.Lower.Hgrad <= 1 || b.Lower.Hmin <= 0 {
		return &types.GeometryError{Op: "validate bounds",
			Err: fmt.Errorf("%w: lower corner %v admits invalid parameters", types.ErrInvalidParameters, b.Lower)}
	}
	return nil
}

// Clamp projects p into the box
func (b Bounds) Clamp(p adapt.Parameters) adapt.Parameters {
	x, lo, hi := p.Vector(), b.Lower.Vector(), b.Upper.Vector()
	for i := range x {
		x[i] = math.Max(lo[i], math.Min(hi[i], x[i]))
	}
	return adapt.FromVector(x)
}
