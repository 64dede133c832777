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
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/projectcalico/netkat/compiler"
	"github.com/projectcalico/netkat/fdd"
	"github.com/projectcalico/netkat/flowtable"
	"github.com/projectcalico/netkat/multitable"
	"github.com/projectcalico/netkat/nkt"
)

func init() {
	compileCmd.Flags().String("policy", "", "Path to the policy JSON file")
	compileCmd.Flags().String("options", "", "Path to the options JSON file (optional)")
	compileCmd.Flags().Uint64("switch", 0, "Switch id to specialize to")
	compileCmd.Flags().String("layout", "",
		"Multi-table layout: slabs separated by '/', fields by ',' (e.g. ethSrc/vlanId,location)")
	compileCmd.Flags().Bool("global", false, "Compile a global program (lower links first)")
	rootCmd.AddCommand(compileCmd)
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a policy and dump its flow table(s)",
	RunE: func(cmd *cobra.Command, args []string) error {
		policyFile, _ := cmd.Flags().GetString("policy")
		optionsFile, _ := cmd.Flags().GetString("options")
		switchID, _ := cmd.Flags().GetUint64("switch")
		layoutSpec, _ := cmd.Flags().GetString("layout")
		global, _ := cmd.Flags().GetBool("global")

		policy, opts, err := loadInputs(policyFile, optionsFile)
		if err != nil {
			return err
		}

		table := fdd.Shared()
		groups := flowtable.NewGroupTable()

		if layoutSpec != "" {
			layout, err := parseLayout(layoutSpec)
			if err != nil {
				return err
			}
			order, err := multitable.FieldOrder(layout)
			if err != nil {
				return err
			}
			opts.FieldOrder = compiler.OrderStatic
			opts.StaticOrder = order.Fields()
			diagram, err := compilePolicy(table, policy, opts, global)
			if err != nil {
				return err
			}
			tables, groups, err := multitable.ToMultiTable(switchID, layout, table, diagram, opts, groups)
			if err != nil {
				return err
			}
			for _, tbl := range tables {
				fmt.Printf("table %d:\n", tbl.ID)
				w := tablewriter.NewWriter(os.Stdout)
				w.SetHeader([]string{"Flow", "Priority", "Pattern", "Instruction"})
				for _, r := range tbl.Rules {
					w.Append([]string{
						r.FlowID.String(),
						fmt.Sprint(r.Priority),
						r.Pattern.String(),
						r.Instruction.String(),
					})
				}
				w.Render()
			}
			renderGroups(groups)
			return nil
		}

		diagram, err := compilePolicy(table, policy, opts, global)
		if err != nil {
			return err
		}
		shared, expanded := table.CompressionRatio(diagram)
		log.WithFields(log.Fields{
			"nodes":    shared,
			"expanded": expanded,
		}).Info("Compiled policy")
		rules, err := flowtable.ToTable(switchID, table, diagram, opts, groups)
		if err != nil {
			return err
		}
		w := tablewriter.NewWriter(os.Stdout)
		w.SetHeader([]string{"Priority", "Pattern", "Actions", "Group"})
		for _, r := range rules {
			group := ""
			if r.GroupID != 0 {
				group = fmt.Sprint(r.GroupID)
			}
			w.Append([]string{
				fmt.Sprint(r.Priority),
				r.Pattern.String(),
				r.Actions.String(),
				group,
			})
		}
		w.Render()
		renderGroups(groups)
		return nil
	},
}

func compilePolicy(table *fdd.Table, policy nkt.Policy, opts compiler.Options, global bool) (fdd.Node, error) {
	if global {
		return compiler.CompileGlobal(table, policy, opts)
	}
	return compiler.CompileLocal(table, policy, opts)
}

func loadInputs(policyFile, optionsFile string) (nkt.Policy, compiler.Options, error) {
	opts := compiler.DefaultOptions()
	if policyFile == "" {
		return nil, opts, fmt.Errorf("--policy is required")
	}
	data, err := os.ReadFile(policyFile)
	if err != nil {
		return nil, opts, err
	}
	policy, err := nkt.UnmarshalPolicy(data)
	if err != nil {
		return nil, opts, err
	}
	if optionsFile != "" {
		data, err := os.ReadFile(optionsFile)
		if err != nil {
			return nil, opts, err
		}
		opts, err = compiler.ParseOptions(data)
		if err != nil {
			return nil, opts, err
		}
	}
	return policy, opts, nil
}

func parseLayout(spec string) (multitable.Layout, error) {
	var layout multitable.Layout
	for _, slabSpec := range strings.Split(spec, "/") {
		var slab []nkt.Field
		for _, name := range strings.Split(slabSpec, ",") {
			f, err := nkt.ParseField(strings.TrimSpace(name))
			if err != nil {
				return nil, err
			}
			slab = append(slab, f)
		}
		layout = append(layout, slab)
	}
	return layout, nil
}

func renderGroups(groups *flowtable.GroupTable) {
	if len(groups.Groups()) == 0 {
		return
	}
	fmt.Println("group table:")
	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"Group", "Type", "Buckets"})
	for _, g := range groups.Groups() {
		buckets := make([]string, len(g.Buckets))
		for i, b := range g.Buckets {
			mods := make([]string, len(b.Mods))
			for j, m := range b.Mods {
				mods[j] = m.String()
			}
			buckets[i] = strings.Join(append(mods, "out="+b.Output.String()), ";")
		}
		w.Append([]string{fmt.Sprint(g.ID), string(g.Type), strings.Join(buckets, " | ")})
	}
	w.Render()
}
