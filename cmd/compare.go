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

	"github.com/spf13/cobra"

	"github.com/notargets/meshadapt/fidelity"
)

// CompareCmd represents the compare command
var CompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Measure how far the boundary of a mesh lies from a target surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		rp, err := loadRun(cmd)
		if err != nil {
			return err
		}
		if rp.Surface == "" {
			return fmt.Errorf("must supply a target surface (-s, --surface)")
		}
		rep, err := fidelity.CompareFiles(rp.Mesh, rp.Surface)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rep)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(CompareCmd)
	addRunFlags(CompareCmd.Flags())
	CompareCmd.Flags().StringP("surface", "s", "", "reference surface (.stl, .ply or .mesh)")
}
