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
	"github.com/projectcalico/netkat/actions"
	"github.com/projectcalico/netkat/nkt"
)

// apply is the generic memoized recursion lifting a leaf-level operation
// to diagrams.  Both operands cofactor on the smallest root test, the
// children combine recursively, and mk canonicalizes the result.
func (t *Table) apply(tag opTag, combine func(a, b actions.Set) actions.Set, x, y Node) Node {
	if result, ok := t.memoGet(tag, x, y); ok {
		return result
	}
	nx, ny := t.node(x), t.node(y)
	var result Node
	if nx.leaf && ny.leaf {
		result = t.Leaf(combine(nx.acts, ny.acts))
	} else {
		test := t.minRootTest(nx, ny)
		xT, xF := t.cofactor(x, test)
		yT, yF := t.cofactor(y, test)
		hi := t.apply(tag, combine, xT, yT)
		lo := t.apply(tag, combine, xF, yF)
		result = t.mk(test, hi, lo)
	}
	t.memoPut(tag, x, y, result)
	return result
}

// minRootTest picks the smaller of the two root tests by (field rank,
// value); at least one operand is a branch.
func (t *Table) minRootTest(nx, ny node) nkt.Test {
	switch {
	case nx.leaf:
		return ny.test
	case ny.leaf:
		return nx.test
	}
	if t.order.CompareTests(nx.test, ny.test) <= 0 {
		return nx.test
	}
	return ny.test
}

// cofactor splits a diagram against a test that is <= its root test.  On
// the true side the packet's field lies inside test's value; on the false
// side it lies outside.
func (t *Table) cofactor(n Node, test nkt.Test) (hi, lo Node) {
	nd := t.node(n)
	if nd.leaf {
		return n, n
	}
	if nd.test == test {
		return nd.hi, nd.lo
	}
	if nd.test.Field == test.Field {
		// Same field, different value; test is the smaller of the two.
		if test.Value.SubsumesValue(nd.test.Value) {
			// The root tests a strictly narrower prefix: undetermined on
			// the true side, still undetermined on the false side.
			return n, n
		}
		if nd.test.Value.SubsumesValue(test.Value) {
			// The root tests a broader prefix containing test's constant:
			// inside test's value the root test passes.
			hi, _ = t.cofactor(nd.hi, test)
			return hi, n
		}
		// Disjoint values: inside test's value the root test fails, as
		// does any further same-field test chained down the false edges.
		hi, _ = t.cofactor(nd.lo, test)
		return hi, n
	}
	return n, n
}

// rootPlacementOK reports whether a node may sit directly under a branch
// on test, on the given side, without violating the path ordering
// invariant.
func (t *Table) rootPlacementOK(test nkt.Test, n Node, trueSide bool) bool {
	nd := t.node(n)
	if nd.leaf {
		return true
	}
	if trueSide {
		if nd.test.Field == test.Field {
			// Only a strictly narrower prefix may be retested below a
			// satisfied prefix test.
			return test.Value != nd.test.Value && test.Value.SubsumesValue(nd.test.Value)
		}
		return t.order.Less(test.Field, nd.test.Field)
	}
	return t.order.CompareTests(test, nd.test) < 0
}

// Cond builds the diagram "if test then hi else lo", restoring the
// ordering invariant if the children already branch on smaller tests.
func (t *Table) Cond(test nkt.Test, hi, lo Node) Node {
	if hi == lo {
		return hi
	}
	if t.rootPlacementOK(test, hi, true) && t.rootPlacementOK(test, lo, false) {
		return t.mk(test, hi, lo)
	}
	pos := t.TestAtom(test)
	neg := t.mk(test, Drop, ID)
	return t.Union(t.mask(pos, hi), t.mask(neg, lo))
}

// mask restricts x to the packets accepted by the predicate diagram p,
// yielding drop elsewhere.
func (t *Table) mask(p, x Node) Node {
	return t.apply(opMask, func(pred, acts actions.Set) actions.Set {
		if pred.IsDrop() {
			return actions.Drop()
		}
		return acts
	}, p, x)
}

// Union is parallel composition: the leaf-level action-set union lifted to
// diagrams.  Identity: drop.  Idempotent, commutative, associative.
func (t *Table) Union(x, y Node) Node {
	if x == y {
		return x
	}
	if x == Drop {
		return y
	}
	if y == Drop {
		return x
	}
	// Union commutes, so halve the memo space by ordering the operands.
	if y < x {
		x, y = y, x
	}
	return t.apply(opUnion, actions.Set.Union, x, y)
}

// MapLeaves rewrites every leaf through fn, canonicalizing with mk on the
// way back up.  The visited map makes the traversal linear in the shared
// diagram size.
func (t *Table) MapLeaves(n Node, fn func(actions.Set) actions.Set) Node {
	cache := map[Node]Node{}
	var walk func(Node) Node
	walk = func(n Node) Node {
		if r, ok := cache[n]; ok {
			return r
		}
		nd := t.node(n)
		var r Node
		if nd.leaf {
			r = t.Leaf(fn(nd.acts))
		} else {
			r = t.mk(nd.test, walk(nd.hi), walk(nd.lo))
		}
		cache[n] = r
		return r
	}
	return walk(n)
}
