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

package nkt

import (
	"sort"

	"github.com/pkg/errors"
)

// FieldOrder is a total order over all header fields.  Every diagram built
// by one compilation session shares a single order; diagrams from different
// orders must never be composed.
type FieldOrder struct {
	rank [NumFields]int
}

// DefaultOrder returns the declaration order of the Field enum.
func DefaultOrder() FieldOrder {
	var o FieldOrder
	for i := 0; i < NumFields; i++ {
		o.rank[i] = i
	}
	return o
}

// StaticOrder builds an order from an explicit permutation of all fields.
func StaticOrder(fields ...Field) (FieldOrder, error) {
	var o FieldOrder
	if len(fields) != NumFields {
		return o, errors.Errorf("field order has %d fields, want %d", len(fields), NumFields)
	}
	seen := [NumFields]bool{}
	for i, f := range fields {
		if int(f) >= NumFields {
			return o, errors.Errorf("unknown field %v in order", f)
		}
		if seen[f] {
			return o, errors.Errorf("field %v repeated in order", f)
		}
		seen[f] = true
		o.rank[f] = i
	}
	return o, nil
}

// HeuristicOrder ranks fields by descending occurrence count in the policy
// (tests, modifications, and the switch/location of each link all count)
// so that the most-used fields sit near the root; ties fall back to the
// default order.
func HeuristicOrder(p Policy) FieldOrder {
	var counts [NumFields]int
	countPolicyTests(p, &counts)
	fields := AllFields()
	sort.SliceStable(fields, func(i, j int) bool {
		return counts[fields[i]] > counts[fields[j]]
	})
	var o FieldOrder
	for i, f := range fields {
		o.rank[f] = i
	}
	return o
}

func countPolicyTests(p Policy, counts *[NumFields]int) {
	switch p := p.(type) {
	case FilterPolicy:
		countPredTests(p.Pred, counts)
	case ModPolicy:
		counts[p.Mod.Field]++
	case UnionPolicy:
		countPolicyTests(p.Left, counts)
		countPolicyTests(p.Right, counts)
	case SeqPolicy:
		countPolicyTests(p.Left, counts)
		countPolicyTests(p.Right, counts)
	case StarPolicy:
		countPolicyTests(p.Policy, counts)
	case LinkPolicy:
		counts[Switch]++
		counts[Location]++
	}
}

func countPredTests(p Pred, counts *[NumFields]int) {
	switch p := p.(type) {
	case TestPred:
		counts[p.Test.Field]++
	case NotPred:
		countPredTests(p.Pred, counts)
	case AndPred:
		countPredTests(p.Left, counts)
		countPredTests(p.Right, counts)
	case OrPred:
		countPredTests(p.Left, counts)
		countPredTests(p.Right, counts)
	}
}

// Rank returns the field's position in the order; smaller ranks are tested
// nearer the root.
func (o FieldOrder) Rank(f Field) int {
	return o.rank[f]
}

// Less reports whether a is tested before b.
func (o FieldOrder) Less(a, b Field) bool {
	return o.rank[a] < o.rank[b]
}

// Fields returns the fields sorted by rank.
func (o FieldOrder) Fields() []Field {
	fields := AllFields()
	sort.Slice(fields, func(i, j int) bool {
		return o.rank[fields[i]] < o.rank[fields[j]]
	})
	return fields
}

// CompareTests orders tests lexicographically by (field rank, value).
func (o FieldOrder) CompareTests(a, b Test) int {
	if c := o.rank[a.Field] - o.rank[b.Field]; c != 0 {
		return c
	}
	return a.Value.Compare(b.Value)
}
