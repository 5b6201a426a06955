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

	"github.com/notargets/meshadapt/bc"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/utils"
)

// DesignCmd represents the design command
var DesignCmd = &cobra.Command{
	Use:   "design",
	Short: "Write the design domain of a volume mesh, every skin node immutable",
	RunE: func(cmd *cobra.Command, args []string) error {
		rp, err := loadRun(cmd)
		if err != nil {
			return err
		}
		m, err := mesh.ReadMedit(rp.Mesh)
		if err != nil {
			return err
		}
		base := outputBase(rp.Output, rp.Mesh)
		path := base + "_design_domain.json"
		nodes := bc.DesignDomainFromSkin(m)
		if err = bc.WriteDesignJSONLines(path, nodes); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"nodes": len(nodes), "of": m.NumVertices}).Info("design domain written")
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

// BCsCmd represents the bcs command
var BCsCmd = &cobra.Command{
	Use:   "bcs",
	Short: "Select boundary condition nodes from the BCs regions of a run description",
	Long: `Selects the nodes inside every box listed under BCs in the run description and
writes the set as YAML, bound to the mesh by its fingerprint, together with the
solver's per kind node files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rp, err := loadRun(cmd)
		if err != nil {
			return err
		}
		if len(rp.BCs) == 0 {
			return fmt.Errorf("run description has no BCs regions:%s", exampleRunFile)
		}
		m, err := mesh.ReadMedit(rp.Mesh)
		if err != nil {
			return err
		}
		base := outputBase(rp.Output, rp.Mesh)
		set, err := rp.BuildSet(utils.Stem(rp.Mesh), m)
		if err != nil {
			return err
		}
		if skin, _ := cmd.Flags().GetBool("design-skin"); skin && len(set.Design) == 0 {
			set.Design = bc.DesignDomainFromSkin(m)
		}
		written, err := bc.Export(base, m, set)
		if err != nil {
			return err
		}
		setPath := base + "_bc.yaml"
		if err = bc.Save(setPath, set); err != nil {
			return err
		}
		for _, path := range append(written, setPath) {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

// outputBase strips the extension of output, or of the mesh when output is empty
func outputBase(output, meshPath string) string {
	if output == "" {
		output = meshPath
	}
	return utils.WithSuffix(output, "")
}

func init() {
	rootCmd.AddCommand(DesignCmd)
	addRunFlags(DesignCmd.Flags())
	DesignCmd.Flags().StringP("output", "o", "", "output base name (default the mesh without extension)")

	rootCmd.AddCommand(BCsCmd)
	addRunFlags(BCsCmd.Flags())
	BCsCmd.Flags().StringP("output", "o", "", "output base name (default the mesh without extension)")
	BCsCmd.Flags().Bool("design-skin", false, "mark the skin immutable when no design regions are given")
}
