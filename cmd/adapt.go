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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/meshadapt/adapt"
	"github.com/notargets/meshadapt/mesh"
)

// AdaptCmd represents the adapt command
var AdaptCmd = &cobra.Command{
	Use:   "adapt",
	Short: "Adapt a volume mesh to the zero level set of a target surface",
	Long: `Computes the signed distance from every vertex of the volume mesh to the target
surface, writes it as a level-set solution and runs the engine on it, repeating
for each iteration on the previous output. The subdomain is then extracted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rp, err := loadRun(cmd)
		if err != nil {
			return err
		}
		driver := &adapt.Driver{
			Engine: newEngine(),
			Logger: logrus.StandardLogger(),
			Output: cmd.ErrOrStderr(),
			Debug:  rp.Debug,
		}
		out, err := driver.Adapt(cmd.Context(), adapt.Request{
			Input:      rp.Mesh,
			Surface:    rp.Surface,
			Output:     rp.Output,
			Params:     rp.Params(),
			Iterations: rp.Iterations,
			MemoryMB:   rp.MemoryMB,
		})
		if err != nil {
			return err
		}
		final := out.Final
		if rp.Subdomain != 0 {
			extractor := &adapt.Extractor{Engine: driver.Engine, Logger: driver.Logger, Output: driver.Output, Debug: rp.Debug}
			if final, err = extractor.Extract(cmd.Context(), out.Final, "", rp.Subdomain); err != nil {
				return err
			}
		}
		m, err := mesh.ReadMedit(final)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), final)
		m.PrintStatistics(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(AdaptCmd)
	addRunFlags(AdaptCmd.Flags())
	addParameterFlags(AdaptCmd.Flags())
	AdaptCmd.Flags().StringP("surface", "s", "", "target surface (.stl, .ply or .mesh)")
	AdaptCmd.Flags().StringP("output", "o", "", "adapted mesh (default replaces \"initial\" with \"adapted\")")
	AdaptCmd.Flags().IntP("iterations", "n", adapt.DefaultIterations, "refinement iterations after the first adaptation")
	AdaptCmd.Flags().Int("subdomain", adapt.DefaultSubdomain, "subdomain tag to extract after adapting, 0 keeps the full mesh")
}
