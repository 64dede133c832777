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

package actions

import (
	"sort"
	"strings"
)

// Set is an unordered set of actions: the parallel composition "emit one
// packet copy per action".  The empty set is drop; the singleton holding
// the identity action is id.  Sets are immutable; the zero value is drop.
type Set struct {
	members map[string]Action
}

// Drop is the empty action set.
func Drop() Set {
	return Set{}
}

// ID is the singleton set holding the identity action.
func ID() Set {
	return FromActions(Identity())
}

// FromActions builds a set from the given actions, deduplicating.
func FromActions(as ...Action) Set {
	members := make(map[string]Action, len(as))
	for _, a := range as {
		members[a.Key()] = a
	}
	return Set{members: members}
}

// IsDrop reports whether the set is empty.
func (s Set) IsDrop() bool {
	return len(s.members) == 0
}

// IsID reports whether the set is exactly the singleton identity.
func (s Set) IsID() bool {
	if len(s.members) != 1 {
		return false
	}
	_, ok := s.members["id"]
	return ok
}

// IsPredicate reports whether the set is a predicate result: id or drop.
func (s Set) IsPredicate() bool {
	return s.IsDrop() || s.IsID()
}

// Len returns the number of actions in the set.
func (s Set) Len() int {
	return len(s.members)
}

// Actions returns the members sorted by canonical key.
func (s Set) Actions() []Action {
	keys := make([]string, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	as := make([]Action, len(keys))
	for i, k := range keys {
		as[i] = s.members[k]
	}
	return as
}

// Union is parallel composition: set union.
func (s Set) Union(t Set) Set {
	if s.IsDrop() {
		return t
	}
	if t.IsDrop() {
		return s
	}
	members := make(map[string]Action, len(s.members)+len(t.members))
	for k, a := range s.members {
		members[k] = a
	}
	for k, a := range t.members {
		members[k] = a
	}
	return Set{members: members}
}

// SeqSet prepends an action to every member of a set:
// { ActionSeq(a, t) | t in T }.
func SeqSet(a Action, t Set) Set {
	members := make(map[string]Action, len(t.members))
	for _, m := range t.members {
		composed := ActionSeq(a, m)
		members[composed.Key()] = composed
	}
	return Set{members: members}
}

// SeqSetSet composes two sets pairwise: the union over s of SeqSet(s, t).
func SeqSetSet(s, t Set) Set {
	result := Drop()
	for _, a := range s.members {
		result = result.Union(SeqSet(a, t))
	}
	return result
}

// Map rewrites each member through fn, deduplicating the results.
func (s Set) Map(fn func(Action) Action) Set {
	members := make(map[string]Action, len(s.members))
	for _, a := range s.members {
		mapped := fn(a)
		members[mapped.Key()] = mapped
	}
	return Set{members: members}
}

// Key is the canonical form used for hashing and interning: member keys
// sorted and joined.
func (s Set) Key() string {
	if s.IsDrop() {
		return "drop"
	}
	keys := make([]string, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, " + ")
}

func (s Set) String() string {
	if s.IsDrop() {
		return "drop"
	}
	return "[" + s.Key() + "]"
}

// Equal reports canonical equality of two sets.
func (s Set) Equal(t Set) bool {
	if len(s.members) != len(t.members) {
		return false
	}
	for k := range s.members {
		if _, ok := t.members[k]; !ok {
			return false
		}
	}
	return true
}
