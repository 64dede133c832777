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

package flowtable

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netkat/actions"
	"github.com/projectcalico/netkat/compiler"
	"github.com/projectcalico/netkat/fdd"
	"github.com/projectcalico/netkat/nkt"
)

// MaxPriority is the priority of the first emitted rule; subsequent rules
// count down.
const MaxPriority = 65535

// Rule is one prioritized flow-table entry.  Actions carries the
// semantic action group; GroupID is nonzero when the group was hoisted
// into the group table (multicast or fast-failover).
type Rule struct {
	Priority    int
	Pattern     Pattern
	Actions     actions.Set
	GroupID     uint32
	Cookie      uint64
	IdleTimeout uint16
	HardTimeout uint16
}

func (r Rule) String() string {
	return fmt.Sprintf("prio=%d %v -> %v", r.Priority, r.Pattern, r.Actions)
}

// ToTable lowers a diagram, specialized to one switch, to an ordered rule
// list.  Rules appear in descending priority; for every packet the first
// matching rule yields the action set the diagram yields.  Group-table
// entries for multicast and fast-failover actions are interned into
// groups as a side effect.
func ToTable(switchID uint64, t *fdd.Table, n fdd.Node, opts compiler.Options, groups *GroupTable) ([]Rule, error) {
	n = t.Restrict(nkt.Test{Field: nkt.Switch, Value: nkt.ConstValue(switchID)}, n)
	n = t.Dedup(n)
	if groups == nil {
		groups = NewGroupTable()
	}

	var rules []Rule
	var walk func(n fdd.Node, pattern Pattern) error
	walk = func(n fdd.Node, pattern Pattern) error {
		test, hi, lo, ok := t.Branch(n)
		if !ok {
			rule, skip, err := LowerLeaf(pattern, t.LeafActions(n), opts, groups)
			if err != nil {
				return err
			}
			if !skip {
				rules = append(rules, rule)
			}
			return nil
		}
		switch test.Value.Kind {
		case nkt.ValueConst, nkt.ValueMask:
			// True side first: its more specific patterns must shadow the
			// false side's.
			if err := walk(hi, pattern.With(test.Field, test.Value)); err != nil {
				return err
			}
			return walk(lo, pattern)
		default:
			if opts.Adherence == compiler.Strict {
				return UnsupportedActionError{
					Reason: fmt.Sprintf("match on symbolic location %v", test.Value),
				}
			}
			log.WithField("test", test).Warn("Dropping branch on symbolic location")
			return walk(lo, pattern)
		}
	}
	if err := walk(n, Pattern{}); err != nil {
		return nil, err
	}

	if opts.DedupFlows {
		rules = dedupFlows(rules)
	}
	if opts.RemoveTailDrops {
		for len(rules) > 0 && rules[len(rules)-1].Actions.IsDrop() {
			rules = rules[:len(rules)-1]
		}
	}
	for i := range rules {
		rules[i].Priority = MaxPriority - i
	}
	return rules, nil
}

// LowerLeaf lowers one leaf's action set under its path pattern.
func LowerLeaf(pattern Pattern, s actions.Set, opts compiler.Options, groups *GroupTable) (Rule, bool, error) {
	rule := Rule{Pattern: pattern.Clone(), Actions: s}
	if s.IsDrop() {
		return rule, false, nil
	}

	// Resolve masked assignments: the wire cannot set a partial prefix.
	lowered := s
	maskErr := false
	lowered = lowered.Map(func(a actions.Action) actions.Action {
		for _, f := range a.Fields() {
			v, _ := a.Get(f)
			if v.Kind == nkt.ValueMask {
				if opts.Adherence == compiler.Strict {
					maskErr = true
				} else {
					a = a.With(f, nkt.ConstValue(v.Num))
				}
			}
		}
		return a
	})
	if maskErr {
		return rule, false, UnsupportedActionError{Reason: "set-field with a partial prefix"}
	}

	// Fill in the default port, or reject/skip actions with no output.
	needGroup := lowered.Len() > 1
	resolved := make([]actions.Action, 0, lowered.Len())
	for _, a := range lowered.Actions() {
		out, ok := a.Get(nkt.Location)
		if !ok {
			if a.Len() == 0 {
				// The identity action forwards the packet unchanged; the
				// wire expresses that as an output to the ingress port.
				resolved = append(resolved, a)
				continue
			}
			if opts.DefaultPort != nil {
				a = a.With(nkt.Location, nkt.ConstValue(uint64(*opts.DefaultPort)))
			} else if opts.Adherence == compiler.Strict {
				return rule, false, IndeterminatePortError{Action: a, Pattern: pattern}
			} else {
				log.WithFields(log.Fields{
					"action":  a,
					"pattern": pattern,
				}).Warn("Skipping rule with indeterminate output port")
				return rule, true, nil
			}
		} else if out.Kind == nkt.ValueFastFail {
			needGroup = true
		}
		resolved = append(resolved, a)
	}
	rule.Actions = actions.FromActions(resolved...)

	if needGroup {
		groupType := GroupAll
		var buckets []Bucket
		for _, a := range resolved {
			if v, ok := a.Get(nkt.Location); ok && v.Kind == nkt.ValueFastFail {
				groupType = GroupFastFail
			}
			buckets = append(buckets, bucketsForAction(a)...)
		}
		id, err := groups.AddGroup(groupType, buckets)
		if err != nil {
			return rule, false, err
		}
		rule.GroupID = id
	}
	return rule, false, nil
}

// dedupFlows merges adjacent rules with the same action where the later,
// more general pattern covers the earlier one.
func dedupFlows(rules []Rule) []Rule {
	out := rules[:0]
	for i := 0; i < len(rules); i++ {
		if i+1 < len(rules) &&
			rules[i].Actions.Equal(rules[i+1].Actions) &&
			rules[i].GroupID == rules[i+1].GroupID &&
			rules[i+1].Pattern.Subsumes(rules[i].Pattern) {
			continue
		}
		out = append(out, rules[i])
	}
	return out
}

// Apply simulates the table on a packet: the first matching rule's action
// set is applied, no match drops.  Used for soundness checking.
func Apply(rules []Rule, pkt nkt.Packet) []nkt.Packet {
	for _, r := range rules {
		if r.Pattern.Matches(pkt) {
			out := make([]nkt.Packet, 0, r.Actions.Len())
			for _, a := range r.Actions.Actions() {
				out = append(out, a.Apply(pkt))
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
			return out
		}
	}
	return nil
}
