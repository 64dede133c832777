// Copyright (c) 2025 Tigera, Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/projectcalico/netkat/fdd"
)

func init() {
	dumpCmd.Flags().String("policy", "", "Path to the policy JSON file")
	dumpCmd.Flags().String("options", "", "Path to the options JSON file (optional)")
	dumpCmd.Flags().Bool("dot", false, "Emit GraphViz DOT instead of the textual form")
	rootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Compile a policy and dump the decision diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		policyFile, _ := cmd.Flags().GetString("policy")
		optionsFile, _ := cmd.Flags().GetString("options")
		dot, _ := cmd.Flags().GetBool("dot")

		policy, opts, err := loadInputs(policyFile, optionsFile)
		if err != nil {
			return err
		}
		table := fdd.Shared()
		diagram, err := compilePolicy(table, policy, opts, false)
		if err != nil {
			return err
		}
		if dot {
			fmt.Print(table.Dot(diagram))
		} else {
			fmt.Println(table.String(diagram))
		}
		return nil
	},
}
