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

// Package actions implements the NetKAT action algebra: a single Action is
// a simultaneous multi-field assignment, an action Set is the parallel
// composition of actions (one output copy per member).
package actions

import (
	"sort"
	"strings"

	"github.com/projectcalico/netkat/nkt"
)

// Action is one simultaneous assignment of values to header fields; at
// most one assignment per field.  Actions are immutable; With returns a
// derived action.
type Action struct {
	assignments map[nkt.Field]nkt.Value
}

// Identity returns the action that assigns nothing.
func Identity() Action {
	return Action{}
}

// Assign returns the single-field assignment action.
func Assign(f nkt.Field, v nkt.Value) Action {
	return Action{assignments: map[nkt.Field]nkt.Value{f: v}}
}

// Get looks up the action's assignment for a field.
func (a Action) Get(f nkt.Field) (nkt.Value, bool) {
	v, ok := a.assignments[f]
	return v, ok
}

// With returns a copy of the action with one assignment replaced.
func (a Action) With(f nkt.Field, v nkt.Value) Action {
	mods := make(map[nkt.Field]nkt.Value, len(a.assignments)+1)
	for field, value := range a.assignments {
		mods[field] = value
	}
	mods[f] = v
	return Action{assignments: mods}
}

// Without returns a copy of the action with one assignment removed.
func (a Action) Without(f nkt.Field) Action {
	if _, ok := a.assignments[f]; !ok {
		return a
	}
	mods := make(map[nkt.Field]nkt.Value, len(a.assignments))
	for field, value := range a.assignments {
		if field != f {
			mods[field] = value
		}
	}
	return Action{assignments: mods}
}

// Len returns the number of fields the action assigns.
func (a Action) Len() int {
	return len(a.assignments)
}

// Fields returns the assigned fields in declaration order.
func (a Action) Fields() []nkt.Field {
	fields := make([]nkt.Field, 0, len(a.assignments))
	for f := range a.assignments {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// ActionSeq composes two actions sequentially; the right action's
// assignments overwrite the left's.
func ActionSeq(a, b Action) Action {
	if b.Len() == 0 {
		return a
	}
	if a.Len() == 0 {
		return b
	}
	mods := make(map[nkt.Field]nkt.Value, a.Len()+b.Len())
	for f, v := range a.assignments {
		mods[f] = v
	}
	for f, v := range b.assignments {
		mods[f] = v
	}
	return Action{assignments: mods}
}

// Apply rewrites a packet with the action's assignments.
func (a Action) Apply(pkt nkt.Packet) nkt.Packet {
	out := pkt.Clone()
	for f, v := range a.assignments {
		out[f] = v
	}
	return out
}

// Key is the canonical form used for hashing and interning: assignments
// sorted by field.
func (a Action) Key() string {
	if len(a.assignments) == 0 {
		return "id"
	}
	parts := make([]string, 0, len(a.assignments))
	for _, f := range a.Fields() {
		parts = append(parts, nkt.Test{Field: f, Value: a.assignments[f]}.String())
	}
	return strings.Join(parts, ",")
}

func (a Action) String() string {
	return a.Key()
}
