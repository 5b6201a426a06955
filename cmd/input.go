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
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notargets/meshadapt/InputParameters"
	"github.com/notargets/meshadapt/adapt"
)

const exampleRunFile = `
########################################
Title: "Bracket"
Mesh: bracket_initial.mesh
Surface: bracket.stl
Hausd: 0.01
Hgrad: 1.3
Hmin: 1
Hmax: 100
Iterations: 1
Subdomain: 3
Optimize:
  MaxTrials: 10
  Lower: {hausd: 0.01, hgrad: 1.01, hmin: 0.1, hmax: 10}
  Upper: {hausd: 0.5, hgrad: 1.5, hmin: 10, hmax: 200}
BCs:
  dirichlet:
    - Name: base
      Min: [-1000, -1000, -0.001]
      Max: [1000, 1000, 0.001]
      BoundaryOnly: true
########################################
`

func addRunFlags(fs *pflag.FlagSet) {
	fs.StringP("inputParametersFile", "I", "", "YAML run description, flags override its values")
	fs.StringP("mesh", "m", "", "volume mesh in Medit (.mesh) format")
}

func addParameterFlags(fs *pflag.FlagSet) {
	p := adapt.DefaultParameters()
	fs.Float64("hausd", p.Hausd, "maximum Hausdorff distance to the level set")
	fs.Float64("hgrad", p.Hgrad, "gradation between adjacent edge sizes, above 1")
	fs.Float64("hmin", p.Hmin, "minimum edge length")
	fs.Float64("hmax", p.Hmax, "maximum edge length")
}

// loadRun merges the run description named by -I with the flags set on the command line
func loadRun(cmd *cobra.Command) (rp *InputParameters.RunParameters, err error) {
	fs := cmd.Flags()
	if path, _ := fs.GetString("inputParametersFile"); path != "" {
		if rp, err = InputParameters.ReadFile(path); err != nil {
			return
		}
	} else {
		rp = InputParameters.NewRunParameters()
	}
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}
	for name, dst := range map[string]*string{"mesh": &rp.Mesh, "surface": &rp.Surface, "output": &rp.Output} {
		if changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	for name, dst := range map[string]*float64{"hausd": &rp.Hausd, "hgrad": &rp.Hgrad, "hmin": &rp.Hmin, "hmax": &rp.Hmax} {
		if changed(name) {
			*dst, _ = fs.GetFloat64(name)
		}
	}
	for name, dst := range map[string]*int{"iterations": &rp.Iterations, "subdomain": &rp.Subdomain} {
		if changed(name) {
			*dst, _ = fs.GetInt(name)
		}
	}
	if mem := viper.GetInt("memory"); mem != 0 {
		rp.MemoryMB = mem
	}
	rp.Debug = rp.Debug || viper.GetBool("debug")
	if rp.Engine != "" && !viper.IsSet("engine") {
		viper.Set("engine", rp.Engine)
	}
	if rp.Mesh == "" {
		return nil, fmt.Errorf("must supply a volume mesh (-m, --mesh) or a run description (-I):%s", exampleRunFile)
	}
	return
}
