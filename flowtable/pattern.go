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

// Package flowtable lowers a per-switch FDD to a prioritized single-table
// rule list plus a shared group table for multicast and fast-failover
// actions.
package flowtable

import (
	"sort"
	"strings"

	"github.com/projectcalico/netkat/nkt"
)

// Pattern is a conjunction of positive field matches: the wire side of a
// root-to-leaf path's true edges.  Negative constraints are not
// represented; they are realized by rule ordering.
type Pattern map[nkt.Field]nkt.Value

// Clone returns an independent copy.
func (p Pattern) Clone() Pattern {
	cpy := make(Pattern, len(p)+1)
	for f, v := range p {
		cpy[f] = v
	}
	return cpy
}

// With returns a copy of the pattern refined with one more match.  A
// narrower prefix replaces a broader one on the same field.
func (p Pattern) With(f nkt.Field, v nkt.Value) Pattern {
	cpy := p.Clone()
	cpy[f] = v
	return cpy
}

// Matches reports whether a concrete packet satisfies every match in the
// pattern.
func (p Pattern) Matches(pkt nkt.Packet) bool {
	for f, v := range p {
		if !(nkt.Test{Field: f, Value: v}).Matches(pkt.Get(f)) {
			return false
		}
	}
	return true
}

// Subsumes reports whether every packet matching other also matches p,
// i.e. p is the same or more general.
func (p Pattern) Subsumes(other Pattern) bool {
	for f, v := range p {
		ov, ok := other[f]
		if !ok || !v.SubsumesValue(ov) {
			return false
		}
	}
	return true
}

// Key is the canonical serialized form, used by String and in tests.
// Rule emission order does not depend on it.
func (p Pattern) Key() string {
	parts := make([]string, 0, len(p))
	for f, v := range p {
		parts = append(parts, nkt.Test{Field: f, Value: v}.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (p Pattern) String() string {
	if len(p) == 0 {
		return "{*}"
	}
	return "{" + p.Key() + "}"
}
