package optimizer

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"

	"github.com/notargets/meshadapt/adapt"
	"github.com/notargets/meshadapt/engine"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
)

func TestCoordinateSearchQuadratic(t *testing.T) {
	target := []float64{0.3, -0.7}
	evals := 0
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			evals++
			return (x[0]-target[0])*(x[0]-target[0]) + 3*(x[1]-target[1])*(x[1]-target[1])
		},
	}
	method := &CoordinateSearch{Lower: []float64{-1, -1}, Upper: []float64{1, 1}, Tolerance: 1e-6}
	result, err := optimize.Minimize(problem, []float64{0.9, 0.9},
		&optimize.Settings{FuncEvaluations: 1000, Converger: optimize.NeverTerminate{}}, method)
	require.NoError(t, err)
	assert.Equal(t, optimize.MethodConverge, result.Status)
	assert.InDelta(t, target[0], result.X[0], 1e-5)
	assert.InDelta(t, target[1], result.X[1], 1e-5)
	assert.Less(t, evals, 1000)
}

func TestCoordinateSearchBoxConstraint(t *testing.T) {
	// The unconstrained minimum lies outside the box, every candidate stays inside it
	var outside bool
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if x[0] < 0 || x[0] > 1 || x[1] < 2 || x[1] > 3 {
				outside = true
			}
			return (x[0]-5)*(x[0]-5) + (x[1]+5)*(x[1]+5)
		},
	}
	method := &CoordinateSearch{Lower: []float64{0, 2}, Upper: []float64{1, 3}}
	result, err := optimize.Minimize(problem, []float64{-10, 10},
		&optimize.Settings{FuncEvaluations: 500, Converger: optimize.NeverTerminate{}}, method)
	require.NoError(t, err)
	assert.False(t, outside)
	assert.Equal(t, []float64{1, 2}, result.X)
}

func TestCoordinateSearchEvaluationLimit(t *testing.T) {
	evals := 0
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			evals++
			return -x[0] * x[1]
		},
	}
	method := &CoordinateSearch{Lower: []float64{0, 0}, Upper: []float64{1, 1}}
	result, err := optimize.Minimize(problem, []float64{0.5, 0.5},
		&optimize.Settings{FuncEvaluations: 3, Converger: optimize.NeverTerminate{}}, method)
	require.NoError(t, err)
	assert.Equal(t, 3, evals)
	assert.Equal(t, optimize.FunctionEvaluationLimit, result.Status)
	// Third candidate (0.75, 0.75) is the best of (0.5, 0.5), (0.75, 0.5), (0.75, 0.75)
	assert.Equal(t, []float64{0.75, 0.75}, result.X)
	assert.Equal(t, -0.5625, result.F)
}

func TestCoordinateSearchFailedStart(t *testing.T) {
	// The start point fails, the first candidate improves, so the step must not be halved
	// before the next sweep
	var tried []float64
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			tried = append(tried, x[0])
			if x[0] == 0.5 {
				return math.Inf(1)
			}
			return x[0]
		},
	}
	method := &CoordinateSearch{Lower: []float64{0}, Upper: []float64{1}}
	_, err := optimize.Minimize(problem, []float64{0.5},
		&optimize.Settings{FuncEvaluations: 3, Converger: optimize.NeverTerminate{}}, method)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.75, 1}, tried)
}

func TestTrialLine(t *testing.T) {
	stamp := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	for _, rmse := range []float64{0.0123456789, math.Inf(1)} {
		trial := Trial{Time: stamp, Params: adapt.Parameters{Hausd: 0.3, Hgrad: 1.3, Hmin: 1, Hmax: 100},
			Elapsed: 1500 * time.Millisecond, RMSE: rmse}
		line := FormatTrial(trial)
		assert.True(t, strings.HasPrefix(line, "2026-03-04 05:06:07 - hausd: 0.3, hgrad: 1.3, hmin: 1, hmax: 100, meshing time: 1.500 s, RMSE: "))
		parsed, err := ParseTrialLine(line)
		require.NoError(t, err)
		assert.True(t, stamp.Equal(parsed.Time))
		assert.Equal(t, trial.Params, parsed.Params)
		assert.Equal(t, trial.Elapsed, parsed.Elapsed)
		assert.Equal(t, rmse, parsed.RMSE)
	}
	for _, bad := range []string{"", "2026-03-04 05:06:07", "2026-03-04 05:06:07 - hausd: x, hgrad: 1, hmin: 1, hmax: 1, meshing time: 1 s, RMSE: 1"} {
		_, err := ParseTrialLine(bad)
		assert.Error(t, err, bad)
	}
}

// failing always reports an adaptation failure
type failing struct{}

func (failing) Adapt(context.Context, engine.AdaptRequest) (*engine.Result, error) {
	return &engine.Result{ExitCode: 1, Stderr: "boom\n"}, &types.AdaptationError{Op: "stub", ExitCode: 1, Stderr: "boom\n"}
}

func (failing) Extract(context.Context, engine.ExtractRequest) (*engine.Result, error) {
	return nil, errors.New("unreachable")
}

// diskFull fails every adaptation the way an in process write to a full disk does
type diskFull struct{ calls int }

func (d *diskFull) Adapt(_ context.Context, req engine.AdaptRequest) (*engine.Result, error) {
	d.calls++
	err := &fs.PathError{Op: "write", Path: req.Output + ".tmp", Err: syscall.ENOSPC}
	return &engine.Result{ExitCode: 1, Stderr: err.Error()}, &types.AdaptationError{Op: "levelset adapt", ExitCode: 1, Err: err}
}

func (d *diskFull) Extract(context.Context, engine.ExtractRequest) (*engine.Result, error) {
	return nil, errors.New("unreachable")
}

func setup(t *testing.T) (dir, initial, surface string) {
	dir = t.TempDir()
	initial = filepath.Join(dir, "cube_initial.mesh")
	require.NoError(t, mesh.WriteMedit(initial, mesh.UnitCubeMesh(4, 1)))
	surface = filepath.Join(dir, "sphere.stl")
	require.NoError(t, mesh.WriteSTL(surface, mesh.UnitSphereSurface(2)))
	return
}

func TestOptimizeSinglePointBox(t *testing.T) {
	for _, maxTrials := range []int{1, 5} {
		dir, initial, surface := setup(t)
		point := adapt.Parameters{Hausd: 0.2, Hgrad: 1.2, Hmin: 0.05, Hmax: 0.5}
		logger, _ := test.NewNullLogger()
		o := &Optimizer{
			Engine:    engine.LevelSet{},
			Logger:    logger,
			Bounds:    Bounds{Lower: point, Upper: point},
			MaxTrials: maxTrials,
		}
		out, err := o.Optimize(context.Background(), initial, surface, adapt.Parameters{Hausd: 0.4, Hgrad: 1.4, Hmin: 1, Hmax: 2})
		require.NoError(t, err)
		assert.Equal(t, point, out.Best)
		require.Len(t, out.Trials, 1)
		assert.Equal(t, point, out.Trials[0].Params)
		assert.False(t, math.IsInf(out.BestRMSE, 0))
		assert.FileExists(t, out.BestMesh)

		assert.Equal(t, filepath.Join(dir, DefaultWorkspace, DefaultLogName), out.LogPath)
		trials, err := (&TrialLog{Path: out.LogPath}).Read()
		require.NoError(t, err)
		assert.Len(t, trials, 1)
	}
}

func TestOptimizeTrialLog(t *testing.T) {
	dir, initial, surface := setup(t)
	workspace := filepath.Join(dir, "work")
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	o := &Optimizer{
		Engine:    engine.LevelSet{},
		Bounds:    DefaultBounds(),
		MaxTrials: 4,
		Workspace: workspace,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	logger, hook := test.NewNullLogger()
	o.Logger = logger
	out, err := o.Optimize(context.Background(), initial, surface, DefaultInitial())
	require.NoError(t, err)
	require.Len(t, out.Trials, 4)
	assert.Equal(t, DefaultInitial(), out.Trials[0].Params)
	assert.GreaterOrEqual(t, len(hook.AllEntries()), 4)

	data, err := os.ReadFile(out.LogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	for i, line := range lines {
		trial, err := ParseTrialLine(line)
		require.NoError(t, err, line)
		assert.Equal(t, out.Trials[i].Params, trial.Params)
		assert.Equal(t, out.Trials[i].RMSE, trial.RMSE)
		assert.True(t, out.Trials[i].Time.Equal(trial.Time))
	}

	// Only the best trial's artifacts survive beside the log
	entries, err := os.ReadDir(workspace)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.FileExists(t, out.BestMesh)

	// A second run appends, never truncates
	_, err = o.Optimize(context.Background(), initial, surface, DefaultInitial())
	require.NoError(t, err)
	trials, err := (&TrialLog{Path: out.LogPath}).Read()
	require.NoError(t, err)
	assert.Len(t, trials, 8)
}

func TestOptimizeSaveIntermediate(t *testing.T) {
	dir, initial, surface := setup(t)
	o := &Optimizer{Engine: engine.LevelSet{}, Bounds: DefaultBounds(), MaxTrials: 3, SaveIntermediate: true}
	o.Logger, _ = test.NewNullLogger()
	out, err := o.Optimize(context.Background(), initial, surface, DefaultInitial())
	require.NoError(t, err)
	for _, trial := range out.Trials {
		assert.FileExists(t, trial.Mesh)
	}
	entries, err := os.ReadDir(filepath.Join(dir, DefaultWorkspace))
	require.NoError(t, err)
	assert.Len(t, entries, 3*3+1)
}

func TestOptimizeFailedTrials(t *testing.T) {
	_, initial, surface := setup(t)
	o := &Optimizer{Engine: failing{}, Bounds: DefaultBounds(), MaxTrials: 3}
	o.Logger, _ = test.NewNullLogger()
	out, err := o.Optimize(context.Background(), initial, surface, DefaultInitial())
	require.NoError(t, err)
	require.Len(t, out.Trials, 3)
	for _, trial := range out.Trials {
		assert.True(t, math.IsInf(trial.RMSE, 1))
		var ae *types.AdaptationError
		assert.True(t, errors.As(trial.Err, &ae))
	}
	assert.True(t, math.IsInf(out.BestRMSE, 1))
	trials, err := (&TrialLog{Path: out.LogPath}).Read()
	require.NoError(t, err)
	assert.Len(t, trials, 3)
}

func TestOptimizeDiskFull(t *testing.T) {
	_, initial, surface := setup(t)
	stub := &diskFull{}
	o := &Optimizer{Engine: stub, Bounds: DefaultBounds(), MaxTrials: 3}
	o.Logger, _ = test.NewNullLogger()
	out, err := o.Optimize(context.Background(), initial, surface, DefaultInitial())
	require.Error(t, err)
	assert.True(t, errors.Is(err, syscall.ENOSPC))
	assert.Equal(t, 1, stub.calls)
	require.NotNil(t, out)
	assert.Empty(t, out.Trials)
	assert.NoFileExists(t, out.LogPath)
}

func TestOptimizeCancelled(t *testing.T) {
	_, initial, surface := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := &Optimizer{Engine: engine.LevelSet{}, Bounds: DefaultBounds(), MaxTrials: 3}
	o.Logger, _ = test.NewNullLogger()
	out, err := o.Optimize(ctx, initial, surface, DefaultInitial())
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, out)
	assert.Empty(t, out.Trials)
	assert.NoFileExists(t, out.LogPath)
}

func TestBoundsValidate(t *testing.T) {
	assert.NoError(t, DefaultBounds().Validate())
	b := DefaultBounds()
	b.Lower.Hmin = 20
	assert.True(t, errors.Is(b.Validate(), types.ErrInvalidParameters))
	b = DefaultBounds()
	b.Lower.Hgrad = 1
	assert.True(t, errors.Is(b.Validate(), types.ErrInvalidParameters))

	clamped := DefaultBounds().Clamp(adapt.Parameters{Hausd: 1, Hgrad: 0, Hmin: 5, Hmax: 1000})
	assert.Equal(t, adapt.Parameters{Hausd: 0.5, Hgrad: 1.01, Hmin: 5, Hmax: 200}, clamped)
}
