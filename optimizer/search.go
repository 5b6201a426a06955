package optimizer

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

const (
	DefaultInitialStep = 0.25 // Fraction of each coordinate's range
	DefaultTolerance   = 1e-3
)

// CoordinateSearch is a bounded compass search. Each coordinate is tried opportunistically
// at +step then -step, candidates are clamped into [Lower, Upper], and all steps are halved after
// a sweep that found no improvement. It converges once every step is at most Tolerance times
// its coordinate's range. Only function values are used, so noisy and non smooth objectives
// are fine.
type CoordinateSearch struct {
	Lower, Upper []float64
	InitialStep  float64 // Zero means DefaultInitialStep
	Tolerance    float64 // Zero means DefaultTolerance

	dim          int
	bestX        []float64
	bestF        float64
	step         []float64
	coord        int
	dir          float64
	lastImproved bool
	improved     bool // Within the current sweep
	evaluated    bool // The start point has been scored
	status       optimize.Status
}

var _ optimize.Method = (*CoordinateSearch)(nil)

func (c *CoordinateSearch) Init(dim, tasks int) int {
	if len(c.Lower) != dim || len(c.Upper) != dim {
		panic("coordinate search: bounds do not match the problem dimension")
	}
	c.dim = dim
	c.status = optimize.NotTerminated
	return 1
}

func (c *CoordinateSearch) Uses(has optimize.Available) (optimize.Available, error) {
	return optimize.Available{}, nil
}

// Status reports why the method stopped on its own
func (c *CoordinateSearch) Status() (optimize.Status, error) {
	return c.status, nil
}

// Clamp projects x into the box in place
func (c *CoordinateSearch) Clamp(x []float64) {
	for i := range x {
		x[i] = math.Max(c.Lower[i], math.Min(c.Upper[i], x[i]))
	}
}

func (c *CoordinateSearch) rangeOf(i int) float64 { return c.Upper[i] - c.Lower[i] }

func (c *CoordinateSearch) converged() bool {
	tol := c.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}
	for i, s := range c.step {
		if s > tol*c.rangeOf(i) {
			return false
		}
	}
	return true
}

func (c *CoordinateSearch) start(x []float64) {
	frac := c.InitialStep
	if frac == 0 {
		frac = DefaultInitialStep
	}
	c.bestX = make([]float64, c.dim)
	copy(c.bestX, x)
	c.Clamp(c.bestX)
	c.bestF = math.Inf(1)
	c.step = make([]float64, c.dim)
	for i := range c.step {
		c.step[i] = frac * c.rangeOf(i)
	}
	c.coord, c.dir = -1, 1
	c.lastImproved, c.improved, c.evaluated = false, false, false
}

func (c *CoordinateSearch) accept(x []float64, f float64) {
	c.lastImproved = false
	if f < c.bestF {
		// A failed start point scores +Inf, the first finite candidate still improves the sweep
		if c.evaluated {
			c.improved = true
		}
		c.lastImproved = true
		c.bestF = f
		copy(c.bestX, x)
	}
	c.evaluated = true
}

// next returns the next candidate, or false when the search has converged
func (c *CoordinateSearch) next(x []float64) bool {
	for {
		switch {
		case c.coord < 0:
			c.coord, c.dir = 0, 1
		case c.dir > 0 && !c.lastImproved:
			c.dir = -1
		default:
			c.coord, c.dir = c.coord+1, 1
		}
		c.lastImproved = false
		if c.coord == c.dim {
			if !c.improved {
				for i := range c.step {
					c.step[i] /= 2
				}
			}
			if c.converged() {
				return false
			}
			c.coord, c.dir, c.improved = 0, 1, false
		}
		copy(x, c.bestX)
		x[c.coord] = math.Max(c.Lower[c.coord], math.Min(c.Upper[c.coord], c.bestX[c.coord]+c.dir*c.step[c.coord]))
		if x[c.coord] != c.bestX[c.coord] {
			return true
		}
	}
}

// Run answers every evaluation with a MajorIteration carrying the best point so far, and every
// acknowledged MajorIteration with the next candidate
func (c *CoordinateSearch) Run(operation chan<- optimize.Task, result <-chan optimize.Task, tasks []optimize.Task) {
	task := tasks[0]
	c.start(task.X)
	copy(task.X, c.bestX)
	task.Op = optimize.FuncEvaluation
	operation <- task

	done := false
	for task := range result {
		switch task.Op {
		case optimize.PostIteration:
			done = true
		case optimize.FuncEvaluation:
			c.accept(task.X, task.F)
			copy(task.X, c.bestX)
			task.F = c.bestF
			task.Op = optimize.MajorIteration
			operation <- task
		case optimize.MajorIteration:
			if done {
				continue
			}
			if !c.next(task.X) {
				c.status = optimize.MethodConverge
				task.Op = optimize.MethodDone
				operation <- task
				done = true
				continue
			}
			task.Op = optimize.FuncEvaluation
			operation <- task
		default:
			done = true
		}
	}
	close(operation)
}
