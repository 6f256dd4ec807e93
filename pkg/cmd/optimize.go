// Copyright Dexopt Labs Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dexopt/go-dexopt/pkg/cfg"
	"github.com/dexopt/go-dexopt/pkg/config"
	"github.com/dexopt/go-dexopt/pkg/constprop"
	"github.com/dexopt/go-dexopt/pkg/ir"
)

// optimizeCmd runs the optimisation pipeline over a single assembly file.
var optimizeCmd = &cobra.Command{
	Use:   "optimize [flags] asm_file",
	Short: "Optimise a given assembly file.",
	Long: `Assemble a given file, analyse its method using constant propagation
and rewrite branches (and, optionally, arithmetic) whose outcome is statically
known.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		conf := loadConfig(cmd)
		//
		code := readAssembly(args[0])
		// Analyse & transform
		stats := optimize(code, constprop.Config{FoldArithmetic: conf.FoldArithmetic})
		//
		log.Infof("simplified %d branches, folded %d instructions",
			stats.BranchesSimplified, stats.InstructionsFolded)
		// Write out the result
		writeAssembly(GetString(cmd, "output"), code)
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
	optimizeCmd.Flags().StringP("output", "o", "", "write optimised assembly to a given file (default stdout)")
	optimizeCmd.Flags().StringP("config", "c", "", "read optimiser configuration from a given TOML file")
	optimizeCmd.Flags().Bool("fold-arithmetic", false, "fold arithmetic over known constants")
}

// optimize runs the analysis and transformation over a single method body.
func optimize(code *ir.Code, conf constprop.Config) constprop.Stats {
	graph, err := cfg.Build(code)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(3)
	}
	//
	iterator := constprop.NewFixpointIterator(graph, conf)
	iterator.Run(constprop.TopEnvironment())
	//
	return constprop.NewTransform(conf).Apply(iterator, code)
}

func loadConfig(cmd *cobra.Command) config.Config {
	conf := config.Default()
	//
	if path := GetString(cmd, "config"); path != "" {
		var err error
		//
		if conf, err = config.Load(path); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}
	// Flags override the file
	if GetFlag(cmd, "fold-arithmetic") {
		conf.FoldArithmetic = true
	}
	//
	return conf
}

func readAssembly(filename string) *ir.Code {
	bytes, err := os.ReadFile(filename)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	code, err := ir.Parse(string(bytes))
	if err != nil {
		fmt.Printf("%s: %s\n", filename, err)
		os.Exit(3)
	}
	//
	return code
}

func writeAssembly(filename string, code *ir.Code) {
	if filename == "" {
		fmt.Print(code.String())
		//
		return
	}
	//
	if err := os.WriteFile(filename, []byte(code.String()), 0644); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}
