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

package fdd

import (
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netkat/actions"
	"github.com/projectcalico/netkat/nkt"
)

// Seq is sequential composition.  Below each leaf of x, y is specialized
// by the leaf's assignments and substituted in, prefixing the leaf's
// actions onto y's.
func (t *Table) Seq(x, y Node) Node {
	if x == Drop || y == Drop {
		return Drop
	}
	if x == ID {
		return y
	}
	if y == ID {
		return x
	}
	if result, ok := t.memoGet(opSeq, x, y); ok {
		return result
	}
	nx := t.node(x)
	var result Node
	if nx.leaf {
		result = Drop
		for _, a := range nx.acts.Actions() {
			z := t.restrictBy(y, a.Get)
			z = t.MapLeaves(z, func(s actions.Set) actions.Set {
				return actions.SeqSet(a, s)
			})
			result = t.Union(result, z)
		}
	} else {
		result = t.Cond(nx.test, t.Seq(nx.hi, y), t.Seq(nx.lo, y))
	}
	t.memoPut(opSeq, x, y, result)
	return result
}

// Star is Kleene iteration: the least fixed point of
// p -> union(id, seq(p, x)).  It terminates because the reachable diagrams
// form a finite lattice and the iteration is monotone.
func (t *Table) Star(x Node) Node {
	acc := ID
	for i := 0; ; i++ {
		next := t.Union(ID, t.Seq(acc, x))
		if next == acc {
			log.WithFields(log.Fields{
				"iterations": i,
				"size":       t.Size(acc),
			}).Debug("Star converged")
			return acc
		}
		acc = next
	}
}

// Negate complements a predicate diagram, swapping id and drop leaves.
// It fails with NonPredicateNegationError if any leaf is a real action
// set.
func (t *Table) Negate(x Node) (Node, error) {
	cache := map[Node]Node{}
	var walk func(Node) (Node, error)
	walk = func(n Node) (Node, error) {
		if r, ok := cache[n]; ok {
			return r, nil
		}
		nd := t.node(n)
		var r Node
		if nd.leaf {
			switch {
			case nd.acts.IsDrop():
				r = ID
			case nd.acts.IsID():
				r = Drop
			default:
				return 0, NonPredicateNegationError{Actions: nd.acts}
			}
		} else {
			hi, err := walk(nd.hi)
			if err != nil {
				return 0, err
			}
			lo, err := walk(nd.lo)
			if err != nil {
				return 0, err
			}
			r = t.mk(nd.test, hi, lo)
		}
		cache[n] = r
		return r, nil
	}
	return walk(x)
}

// Restrict partially evaluates the diagram under the assumption that the
// packet's field equals the test's value.
func (t *Table) Restrict(test nkt.Test, x Node) Node {
	return t.restrictBy(x, func(f nkt.Field) (nkt.Value, bool) {
		if f == test.Field {
			return test.Value, true
		}
		return nkt.Value{}, false
	})
}

// restrictBy partially evaluates the diagram under a set of known field
// values.  Branches on known fields collapse to the matching child;
// branches on other fields rebuild via Cond.
func (t *Table) restrictBy(n Node, known func(nkt.Field) (nkt.Value, bool)) Node {
	cache := map[Node]Node{}
	var walk func(Node) Node
	walk = func(n Node) Node {
		if r, ok := cache[n]; ok {
			return r
		}
		nd := t.node(n)
		var r Node
		if nd.leaf {
			r = n
		} else if v, ok := known(nd.test.Field); ok {
			if nd.test.Value.SubsumesValue(v) {
				r = walk(nd.hi)
			} else {
				r = walk(nd.lo)
			}
		} else {
			r = t.Cond(nd.test, walk(nd.hi), walk(nd.lo))
		}
		cache[n] = r
		return r
	}
	return walk(n)
}

// Dedup canonicalizes leaves against the tests on their paths, removing
// assignments whose value the path has already pinned.
func (t *Table) Dedup(x Node) Node {
	var walk func(n Node, pinned map[nkt.Field]nkt.Value) Node
	walk = func(n Node, pinned map[nkt.Field]nkt.Value) Node {
		nd := t.node(n)
		if nd.leaf {
			return t.Leaf(nd.acts.Map(func(a actions.Action) actions.Action {
				for f, v := range pinned {
					if av, ok := a.Get(f); ok && av == v {
						a = a.Without(f)
					}
				}
				return a
			}))
		}
		hiPinned := pinned
		if nd.test.Value.Kind == nkt.ValueConst {
			// Only an exact constant pins the field's value; a prefix
			// match leaves the concrete value open.
			hiPinned = make(map[nkt.Field]nkt.Value, len(pinned)+1)
			for f, v := range pinned {
				hiPinned[f] = v
			}
			hiPinned[nd.test.Field] = nd.test.Value
		}
		return t.Cond(nd.test, walk(nd.hi, hiPinned), walk(nd.lo, pinned))
	}
	return walk(x, map[nkt.Field]nkt.Value{})
}
