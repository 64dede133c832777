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

// Package multitable splits a diagram across an OpenFlow multi-table
// pipeline.  The caller supplies a layout: an ordered partition of the
// fields over successive tables.  Each table's rules either apply a
// terminal action group or jump to the next table, carrying a metadata id
// that names the sub-diagram the next table continues from.
package multitable

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netkat/actions"
	"github.com/projectcalico/netkat/compiler"
	"github.com/projectcalico/netkat/fdd"
	"github.com/projectcalico/netkat/flowtable"
	"github.com/projectcalico/netkat/idalloc"
	"github.com/projectcalico/netkat/nkt"
)

// Layout is the ordered list of disjoint field subsets assigned to
// successive tables.
type Layout [][]nkt.Field

// FieldOrder derives the static field order compatible with the layout:
// slab fields in slab order, then every remaining field.  Compiling with
// this order guarantees the partition step never sees an
// earlier-slab field below a later one.
func FieldOrder(layout Layout) (nkt.FieldOrder, error) {
	seen := map[nkt.Field]bool{}
	var fields []nkt.Field
	for _, slab := range layout {
		for _, f := range slab {
			if seen[f] {
				return nkt.FieldOrder{}, FieldOutOfLayoutError{
					Field:  f,
					Reason: "field appears in two slabs",
				}
			}
			seen[f] = true
			fields = append(fields, f)
		}
	}
	for _, f := range nkt.AllFields() {
		if !seen[f] {
			fields = append(fields, f)
		}
	}
	return nkt.StaticOrder(fields...)
}

// FlowID names a rule group: the table it lives in and the metadata value
// guarding it.
type FlowID struct {
	TableID int
	MetaID  int
}

func (id FlowID) String() string {
	return fmt.Sprintf("t%d/m%d", id.TableID, id.MetaID)
}

// Instruction is what a matched rule does: apply a terminal action group,
// or continue in a later table.
type Instruction interface {
	isInstruction()
	String() string
}

// ApplyInstruction terminates the pipeline with an action group.
type ApplyInstruction struct {
	Actions actions.Set
	GroupID uint32
}

func (ApplyInstruction) isInstruction() {}

func (i ApplyInstruction) String() string {
	if i.GroupID != 0 {
		return fmt.Sprintf("group(%d)", i.GroupID)
	}
	return i.Actions.String()
}

// GotoInstruction jumps to the rule group identified by Next, writing its
// metadata id.
type GotoInstruction struct {
	Next FlowID
}

func (GotoInstruction) isInstruction() {}

func (i GotoInstruction) String() string {
	return "goto " + i.Next.String()
}

// Rule is one multi-table flow entry.  FlowID carries the rule's own
// table and metadata guard; table 0 rules are unguarded (metadata 0).
type Rule struct {
	FlowID      FlowID
	Priority    int
	Pattern     flowtable.Pattern
	Instruction Instruction
}

func (r Rule) String() string {
	return fmt.Sprintf("[%v] prio=%d %v -> %v", r.FlowID, r.Priority, r.Pattern, r.Instruction)
}

// Table is one table of the pipeline.
type Table struct {
	ID    int
	Rules []Rule
}

const maxMetadata = 1 << 12

// ToMultiTable lowers a diagram across the layout's tables, sharing one
// group table.  It fails with FieldOutOfLayoutError if the diagram tests
// a field no slab covers, or one whose slab the pipeline has already
// passed.
func ToMultiTable(switchID uint64, layout Layout, t *fdd.Table, n fdd.Node, opts compiler.Options, groups *flowtable.GroupTable) ([]Table, *flowtable.GroupTable, error) {
	if groups == nil {
		groups = flowtable.NewGroupTable()
	}
	slabIndex := map[nkt.Field]int{}
	for i, slab := range layout {
		for _, f := range slab {
			if prev, ok := slabIndex[f]; ok {
				return nil, nil, FieldOutOfLayoutError{
					Field:  f,
					Reason: fmt.Sprintf("field appears in slabs %d and %d", prev, i),
				}
			}
			slabIndex[f] = i
		}
	}

	n = t.Restrict(nkt.Test{Field: nkt.Switch, Value: nkt.ConstValue(switchID)}, n)
	n = t.Dedup(n)

	out := make([]Table, len(layout))
	entries := []fdd.Node{n} // metadata id -> sub-diagram, for the current table
	for tableID := range layout {
		out[tableID].ID = tableID
		var nextEntries []fdd.Node
		nextMeta := map[fdd.Node]int{}
		alloc := idalloc.NewIndexAllocator(idalloc.IndexRange{Min: 0, Max: maxMetadata - 1})

		for metaID, root := range entries {
			var rules []Rule
			frontier := func(sub fdd.Node) (Instruction, error) {
				if t.IsLeaf(sub) {
					return applyInstruction(t.LeafActions(sub), opts, groups)
				}
				m, ok := nextMeta[sub]
				if !ok {
					var err error
					m, err = alloc.GrabIndex()
					if err != nil {
						return nil, err
					}
					nextMeta[sub] = m
					nextEntries = append(nextEntries, sub)
				}
				return GotoInstruction{Next: FlowID{TableID: tableID + 1, MetaID: m}}, nil
			}
			var walk func(sub fdd.Node, pattern flowtable.Pattern) error
			walk = func(sub fdd.Node, pattern flowtable.Pattern) error {
				if test, hi, lo, ok := t.Branch(sub); ok {
					idx, inLayout := slabIndex[test.Field]
					if inLayout && idx < tableID {
						return FieldOutOfLayoutError{
							Field:  test.Field,
							Reason: fmt.Sprintf("tested in table %d but assigned to slab %d", tableID, idx),
						}
					}
					if inLayout && idx == tableID {
						if err := walk(hi, pattern.With(test.Field, test.Value)); err != nil {
							return err
						}
						return walk(lo, pattern)
					}
					if !inLayout {
						return FieldOutOfLayoutError{
							Field:  test.Field,
							Reason: "field not covered by any slab",
						}
					}
				}
				instr, err := frontier(sub)
				if err != nil {
					return err
				}
				rules = append(rules, Rule{
					FlowID:      FlowID{TableID: tableID, MetaID: metaID},
					Pattern:     pattern.Clone(),
					Instruction: instr,
				})
				return nil
			}
			if err := walk(root, flowtable.Pattern{}); err != nil {
				return nil, nil, err
			}
			out[tableID].Rules = append(out[tableID].Rules, rules...)
		}

		if tableID == len(layout)-1 && len(nextEntries) > 0 {
			test, _, _, _ := t.Branch(nextEntries[0])
			return nil, nil, FieldOutOfLayoutError{
				Field:  test.Field,
				Reason: "diagram continues past the last slab",
			}
		}
		entries = nextEntries
	}

	for i := range out {
		finishTable(&out[i], opts)
	}
	log.WithFields(log.Fields{
		"tables": len(out),
		"groups": len(groups.Groups()),
	}).Debug("Emitted multi-table pipeline")
	return out, groups, nil
}

func applyInstruction(s actions.Set, opts compiler.Options, groups *flowtable.GroupTable) (Instruction, error) {
	rule, skip, err := flowtable.LowerLeaf(flowtable.Pattern{}, s, opts, groups)
	if err != nil {
		return nil, err
	}
	if skip {
		return ApplyInstruction{Actions: actions.Drop()}, nil
	}
	return ApplyInstruction{Actions: rule.Actions, GroupID: rule.GroupID}, nil
}

// finishTable assigns priorities and applies the table-level cleanups.
func finishTable(table *Table, opts compiler.Options) {
	rules := table.Rules
	if opts.RemoveTailDrops {
		for len(rules) > 0 {
			last, ok := rules[len(rules)-1].Instruction.(ApplyInstruction)
			if !ok || !last.Actions.IsDrop() || last.GroupID != 0 {
				break
			}
			rules = rules[:len(rules)-1]
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		// Keep each metadata group contiguous; emission order within a
		// group already realizes the shadow relation.
		return rules[i].FlowID.MetaID < rules[j].FlowID.MetaID
	})
	for i := range rules {
		rules[i].Priority = flowtable.MaxPriority - i
	}
	table.Rules = rules
}
