/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/meshadapt/adapt"
	"github.com/notargets/meshadapt/optimizer"
)

// OptimizeCmd represents the optimize command
var OptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search the adaptation parameters that best reproduce the target surface",
	Long: `Runs a bounded derivative free search over (hausd, hgrad, hmin, hmax). Each trial
adapts the initial mesh, extracts the subdomain and scores the RMSE of its boundary
against the target surface. Every trial is appended to the trial log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rp, err := loadRun(cmd)
		if err != nil {
			return err
		}
		if rp.Surface == "" {
			return fmt.Errorf("must supply a target surface (-s, --surface)")
		}
		fs := cmd.Flags()
		o := &optimizer.Optimizer{
			Engine:   newEngine(),
			Logger:   logrus.StandardLogger(),
			Bounds:   rp.Bounds(),
			Tag:      rp.Subdomain,
			MemoryMB: rp.MemoryMB,
			Debug:    rp.Debug,
		}
		if rp.Optimize != nil {
			o.MaxTrials = rp.Optimize.MaxTrials
			o.Tolerance = rp.Optimize.Tolerance
			o.Workspace = rp.Optimize.Workspace
			o.SaveIntermediate = rp.Optimize.SaveIntermediate
		}
		if fs.Changed("trials") {
			o.MaxTrials, _ = fs.GetInt("trials")
		}
		if fs.Changed("workspace") {
			o.Workspace, _ = fs.GetString("workspace")
		}
		if fs.Changed("save-intermediate") {
			o.SaveIntermediate, _ = fs.GetBool("save-intermediate")
		}
		o.LogPath, _ = fs.GetString("log")
		if o.Debug {
			o.Output = cmd.ErrOrStderr()
		}

		out, err := o.Optimize(cmd.Context(), rp.Mesh, rp.Surface, rp.Params())
		if out != nil && !math.IsInf(out.BestRMSE, 1) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "best: %s, RMSE: %g\n", out.Best, out.BestRMSE)
			fmt.Fprintf(w, "mesh: %s\n", out.BestMesh)
			fmt.Fprintf(w, "trials: %d, log: %s\n", len(out.Trials), out.LogPath)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(OptimizeCmd)
	addRunFlags(OptimizeCmd.Flags())
	addParameterFlags(OptimizeCmd.Flags())
	OptimizeCmd.Flags().StringP("surface", "s", "", "target surface (.stl, .ply or .mesh)")
	OptimizeCmd.Flags().Int("subdomain", adapt.DefaultSubdomain, "subdomain tag scored against the surface")
	OptimizeCmd.Flags().IntP("trials", "t", optimizer.DefaultMaxTrials, "maximum number of trials")
	OptimizeCmd.Flags().String("workspace", "", "trial artifacts directory (default .optim beside the mesh)")
	OptimizeCmd.Flags().String("log", "", "trial log (default <workspace>/mesh_optim.out)")
	OptimizeCmd.Flags().Bool("save-intermediate", false, "keep the artifacts of every trial")
}
