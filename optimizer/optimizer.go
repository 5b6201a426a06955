package optimizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/optimize"

	"github.com/notargets/meshadapt/adapt"
	"github.com/notargets/meshadapt/distance"
	"github.com/notargets/meshadapt/engine"
	"github.com/notargets/meshadapt/fidelity"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

const (
	DefaultMaxTrials = 10
	DefaultWorkspace = ".optim"
	DefaultLogName   = "mesh_optim.out"
)

// Optimizer searches adaptation parameters minimizing the RMSE between the extracted
// subdomain and the target surface. Trials run one after another.
type Optimizer struct {
	Engine engine.Engine
	Logger logrus.FieldLogger
	Output io.Writer // Engine output, may be nil

	Bounds    Bounds
	MaxTrials int     // Zero means DefaultMaxTrials
	Tolerance float64 // Search step tolerance, fraction of each range
	Tag       int     // Subdomain to extract, zero means adapt.DefaultSubdomain
	MemoryMB  int

	Workspace        string // Trial artifacts, DefaultWorkspace beside the initial mesh when empty
	LogPath          string // Trial log, Workspace/DefaultLogName when empty
	SaveIntermediate bool   // Keep the artifacts of every trial
	Debug            bool

	Now func() time.Time // Trial timestamps, time.Now when nil
}

type Outcome struct {
	Best     adapt.Parameters
	BestRMSE float64
	BestMesh string // Extracted mesh of the best trial
	Trials   []Trial
	Status   optimize.Status
	LogPath  string
}

// TrialName is the adapted mesh of trial n
func TrialName(workspace, stem string, n int, p adapt.Parameters) string {
	return filepath.Join(workspace, fmt.Sprintf("%s_trial_%d_optim_%g_%g_%g_%g.mesh",
		stem, n, p.Hausd, p.Hgrad, p.Hmin, p.Hmax))
}

type trialRun struct {
	trial     Trial
	artifacts []string
}

// Optimize runs the bounded coordinate search from initial, one adapt, extract and compare
// round per trial, and returns the best parameters seen. A failed trial scores +Inf and the
// search goes on, unless the disk or permissions refused a write, which aborts the run. When ctx is cancelled the running trial is discarded unlogged, and the
// best result so far is returned together with the context error.
func (o *Optimizer) Optimize(ctx context.Context, initialMesh, surfacePath string, initial adapt.Parameters) (*Outcome, error) {
	log := o.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := o.Bounds.Validate(); err != nil {
		return nil, err
	}
	maxTrials := o.MaxTrials
	if maxTrials == 0 {
		maxTrials = DefaultMaxTrials
	}
	if maxTrials < 0 {
		return nil, fmt.Errorf("max trials must be positive, got %d", maxTrials)
	}
	tag := o.Tag
	if tag == 0 {
		tag = adapt.DefaultSubdomain
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}
	workspace := o.Workspace
	if workspace == "" {
		workspace = filepath.Join(filepath.Dir(initialMesh), DefaultWorkspace)
	}
	if err := utils.EnsureDir(workspace); err != nil {
		return nil, err
	}
	trialLog := &TrialLog{Path: o.LogPath}
	if trialLog.Path == "" {
		trialLog.Path = filepath.Join(workspace, DefaultLogName)
	}

	target, err := mesh.ReadSurface(surfacePath)
	if err != nil {
		return nil, fmt.Errorf("reading target surface: %w", err)
	}
	ev, err := distance.New(target)
	if err != nil {
		return nil, err
	}

	var (
		driver    = &adapt.Driver{Engine: o.Engine, Logger: log, Output: o.Output, Debug: o.Debug}
		extractor = &adapt.Extractor{Engine: o.Engine, Logger: log, Output: o.Output, Debug: o.Debug}
		stem      = utils.Stem(initialMesh)
		outcome   = &Outcome{BestRMSE: math.Inf(1), LogPath: trialLog.Path}
		best      *trialRun
		fatal     error
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One full round, never refining
	evaluate := func(p adapt.Parameters, n int) (run *trialRun) {
		run = &trialRun{trial: Trial{Index: n, Time: now(), Params: p, RMSE: math.Inf(1)}}
		start := time.Now()
		output := TrialName(workspace, stem, n, p)
		run.artifacts = append(run.artifacts, output, adapt.DirectiveName(output))
		res, err := driver.Adapt(runCtx, adapt.Request{
			Input:    initialMesh,
			Target:   target,
			Output:   output,
			Params:   p,
			MemoryMB: o.MemoryMB,
		})
		run.trial.Elapsed = time.Since(start)
		if err != nil {
			run.trial.Err = err
			return
		}
		extracted := adapt.ExtractedName(res.Final)
		run.artifacts = append(run.artifacts, extracted)
		if _, err = extractor.Extract(runCtx, res.Final, extracted, tag); err != nil {
			run.trial.Err = err
			return
		}
		m, err := mesh.ReadMedit(extracted)
		if err != nil {
			run.trial.Err = err
			return
		}
		rep, err := fidelity.CompareWith(ev, m)
		if err != nil {
			run.trial.Err = err
			return
		}
		run.trial.RMSE = rep.RMSE
		run.trial.Mesh = extracted
		return
	}

	objective := func(x []float64) float64 {
		if fatal != nil || runCtx.Err() != nil || len(outcome.Trials) >= maxTrials {
			return math.Inf(1)
		}
		p := adapt.FromVector(x)
		n := len(outcome.Trials) + 1
		run := evaluate(p, n)
		if runCtx.Err() != nil {
			// Interrupted trials leave no trace
			utils.RemoveFiles(run.artifacts...)
			return math.Inf(1)
		}
		if types.IsEnvironmentError(run.trial.Err) {
			utils.RemoveFiles(run.artifacts...)
			fatal = fmt.Errorf("trial %d: %w", n, run.trial.Err)
			cancel()
			return math.Inf(1)
		}
		if err := trialLog.Append(run.trial); err != nil {
			fatal = fmt.Errorf("writing trial log: %w", err)
			cancel()
			return math.Inf(1)
		}
		outcome.Trials = append(outcome.Trials, run.trial)

		tlog := log.WithFields(logrus.Fields{"trial": n, "params": p.String(),
			"elapsed": run.trial.Elapsed.Round(time.Millisecond)})
		if run.trial.Err != nil {
			tlog.WithError(run.trial.Err).Warn("trial failed")
		} else {
			tlog.WithField("rmse", run.trial.RMSE).Info("trial finished")
		}
		tlog.WithField("memory", utils.GetMemUsage()).Debug("trial resources")

		switch {
		case run.trial.RMSE < outcome.BestRMSE || best == nil:
			if best != nil && !o.SaveIntermediate {
				utils.RemoveFiles(best.artifacts...)
				outcome.Trials[best.trial.Index-1].Mesh = ""
			}
			best = run
			outcome.Best, outcome.BestRMSE, outcome.BestMesh = p, run.trial.RMSE, run.trial.Mesh
		case !o.SaveIntermediate:
			utils.RemoveFiles(run.artifacts...)
			outcome.Trials[n-1].Mesh = ""
		}
		return run.trial.RMSE
	}

	search := &CoordinateSearch{
		Lower:     o.Bounds.Lower.Vector(),
		Upper:     o.Bounds.Upper.Vector(),
		Tolerance: o.Tolerance,
	}
	problem := optimize.Problem{
		Func: objective,
		// A fatal log error cancels runCtx too
		Status: func() (optimize.Status, error) {
			if err := runCtx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxTrials,
		Converger:       optimize.NeverTerminate{},
	}

	log.WithFields(logrus.Fields{"initial": initial.String(), "trials": maxTrials, "log": trialLog.Path}).
		Info("starting parameter search")
	result, err := optimize.Minimize(problem, o.Bounds.Clamp(initial).Vector(), settings, search)
	if result != nil {
		outcome.Status = result.Status
	}
	switch {
	case fatal != nil:
		return outcome, fatal
	case ctx.Err() != nil:
		return outcome, ctx.Err()
	case err != nil && !errors.Is(err, context.Canceled):
		return outcome, err
	}
	if math.IsInf(outcome.BestRMSE, 1) {
		log.Warn("no trial succeeded")
	} else {
		log.WithFields(logrus.Fields{"best": outcome.Best.String(), "rmse": outcome.BestRMSE,
			"mesh": outcome.BestMesh, "status": outcome.Status}).Info("parameter search finished")
	}
	return outcome, nil
}
