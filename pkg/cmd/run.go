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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dexopt/go-dexopt/pkg/ir"
)

// runCmd executes a given assembly file concretely.
var runCmd = &cobra.Command{
	Use:   "run [flags] asm_file [param...]",
	Short: "Execute a given assembly file.",
	Long: `Execute a given assembly file concretely, reading each load-param from
the given parameters and printing the returned value (if any).`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		code := readAssembly(args[0])
		params := parseParams(args[1:])
		//
		result, err := ir.Execute(code, params, GetUint(cmd, "max-steps"))
		if err != nil {
			fmt.Println(err)
			os.Exit(4)
		}
		//
		if result.HasValue {
			fmt.Println(result.Value)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint("max-steps", 1_000_000, "maximum number of instructions to execute")
}

func parseParams(args []string) []int64 {
	params := make([]int64, len(args))
	//
	for i, arg := range args {
		val, err := strconv.ParseInt(arg, 10, 64)
		//
		if err != nil {
			fmt.Printf("invalid parameter %q\n", arg)
			os.Exit(1)
		}
		//
		params[i] = val
	}
	//
	return params
}
