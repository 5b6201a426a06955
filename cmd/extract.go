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
)

// ExtractCmd represents the extract command
var ExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one tagged subdomain of an adapted mesh",
	RunE: func(cmd *cobra.Command, args []string) error {
		rp, err := loadRun(cmd)
		if err != nil {
			return err
		}
		extractor := &adapt.Extractor{
			Engine: newEngine(),
			Logger: logrus.StandardLogger(),
			Output: cmd.ErrOrStderr(),
			Debug:  rp.Debug,
		}
		output, err := extractor.Extract(cmd.Context(), rp.Mesh, rp.Output, rp.Subdomain)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ExtractCmd)
	addRunFlags(ExtractCmd.Flags())
	ExtractCmd.Flags().StringP("output", "o", "", "extracted mesh (default <mesh>_extracted.mesh)")
	ExtractCmd.Flags().Int("subdomain", adapt.DefaultSubdomain, "subdomain tag to keep")
}
