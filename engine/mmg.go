package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

const DefaultBinary = "mmg3d_O3"

// MMG runs the mmg3d executable as a subprocess
type MMG struct {
	Binary     string
	PrefixArgs []string // Inserted before the generated arguments
	Env        []string // Extra environment, nil inherits the parent's
}

// NewMMG returns the binding for binary, or the default mmg3d executable when binary is empty
func NewMMG(binary string) *MMG {
	if binary == "" {
		binary = DefaultBinary
	}
	return &MMG{Binary: binary}
}

func ff(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// AdaptArgs returns the mmg3d arguments for a level-set = 0 adaptation
func AdaptArgs(req AdaptRequest) []string {
	args := []string{
		"-in", req.Input,
		"-sol", req.Solution,
		"-out", req.Output,
		"-ls", "0",
		"-m", strconv.Itoa(req.MemoryMB),
		"-nr",
		"-hausd", ff(req.Hausd),
		"-hgrad", ff(req.Hgrad),
		"-hmin", ff(req.Hmin),
		"-hmax", ff(req.Hmax),
	}
	if req.Debug {
		args = append(args, "-d")
	}
	return args
}

// ExtractArgs returns the mmg3d arguments for subdomain extraction
func ExtractArgs(req ExtractRequest) []string {
	args := []string{
		"-in", req.Input,
		"-sol", "0",
		"-out", req.Output,
		"-noinsert", "-noswap", "-nomove",
		"-nsd", strconv.Itoa(req.Tag),
	}
	if req.Debug {
		args = append(args, "-d")
	}
	return args
}

func (e *MMG) Adapt(ctx context.Context, req AdaptRequest) (*Result, error) {
	return e.run(ctx, "mmg3d adapt", req.Output, AdaptArgs(req))
}

func (e *MMG) Extract(ctx context.Context, req ExtractRequest) (*Result, error) {
	return e.run(ctx, "mmg3d extract", req.Output, ExtractArgs(req))
}

func (e *MMG) run(ctx context.Context, op, output string, args []string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	argv := append(append([]string{}, e.PrefixArgs...), args...)
	cmd := exec.CommandContext(ctx, e.Binary, argv...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if e.Env != nil {
		cmd.Env = e.Env
	}

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Command: append([]string{e.Binary}, argv...),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return res, e.failure(op, res, err)
	}
	if !utils.FileExists(output) {
		return res, e.failure(op, res, fmt.Errorf("engine exited cleanly but wrote no %s", output))
	}
	return res, nil
}

func (e *MMG) failure(op string, res *Result, err error) error {
	return &types.AdaptationError{
		Op:       op,
		Command:  res.Command,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Err:      err,
	}
}
