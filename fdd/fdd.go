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

// Package fdd implements the forwarding decision diagram at the heart of
// the compiler: an ordered, reduced, hash-consed multi-terminal decision
// diagram with header-field tests at branches and action sets at leaves.
// Nodes are interned in a Table; handle equality is diagram equality.
package fdd

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netkat/actions"
	"github.com/projectcalico/netkat/nkt"
)

var (
	counterInternHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netkat_fdd_intern_hits_total",
		Help: "Number of node constructions satisfied by the intern table.",
	})
	counterInternMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netkat_fdd_intern_misses_total",
		Help: "Number of node constructions that allocated a fresh node.",
	})
	counterMemoHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netkat_fdd_memo_hits_total",
		Help: "Number of operator applications satisfied by the memo table.",
	})
	counterMemoMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netkat_fdd_memo_misses_total",
		Help: "Number of operator applications computed from scratch.",
	})
	gaugeNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netkat_fdd_nodes",
		Help: "Number of nodes allocated in the shared intern table, swept nodes included.",
	})
)

func init() {
	prometheus.MustRegister(counterInternHits)
	prometheus.MustRegister(counterInternMisses)
	prometheus.MustRegister(counterMemoHits)
	prometheus.MustRegister(counterMemoMisses)
	prometheus.MustRegister(gaugeNodes)
}

// Node is a handle to an interned diagram node.  Handles from the same
// Table compare equal iff the diagrams are structurally equal.
type Node uint32

type node struct {
	leaf    bool
	acts    actions.Set
	test    nkt.Test
	hi, lo  Node
}

type branchKey struct {
	test   nkt.Test
	hi, lo Node
}

type opTag uint8

const (
	opUnion opTag = iota + 1
	opSeq
	opMask
)

type memoKey struct {
	op   opTag
	x, y Node
}

// Table owns the intern table and the per-operator memo tables, together
// with the field order every diagram in it is built over.  A Table may be
// shared between goroutines: lookups take the read lock, inserts the write
// lock.
type Table struct {
	mu       sync.RWMutex
	order    nkt.FieldOrder
	nodes    []node
	leaves   map[string]Node
	branches map[branchKey]Node
	memo     map[memoKey]Node
}

// NewTable creates a fresh table over the given field order.  The drop and
// id leaves are always interned first, so their handles are stable.
func NewTable(order nkt.FieldOrder) *Table {
	t := &Table{order: order}
	t.reset()
	return t
}

var (
	sharedOnce  sync.Once
	sharedTable *Table
)

// Shared returns the process-wide table, created over the default field
// order at first use.
func Shared() *Table {
	sharedOnce.Do(func() {
		sharedTable = NewTable(nkt.DefaultOrder())
	})
	return sharedTable
}

func (t *Table) reset() {
	t.nodes = t.nodes[:0]
	t.leaves = map[string]Node{}
	t.branches = map[branchKey]Node{}
	t.memo = map[memoKey]Node{}
	// Handle 0 is drop, handle 1 is id, by construction.
	t.internLeaf(actions.Drop())
	t.internLeaf(actions.ID())
}

// Reset empties the table and installs a (possibly new) field order.  All
// previously issued handles become invalid.
func (t *Table) Reset(order nkt.FieldOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = order
	t.reset()
	t.updateGauge()
}

// Preserve drops the memo tables and un-interns every node not reachable
// from the given roots.  Node storage is retained so surviving handles
// remain valid.
func (t *Table) Preserve(roots ...Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	reachable := map[Node]bool{}
	var mark func(n Node)
	mark = func(n Node) {
		if reachable[n] {
			return
		}
		reachable[n] = true
		nd := t.nodes[n]
		if !nd.leaf {
			mark(nd.hi)
			mark(nd.lo)
		}
	}
	mark(Drop)
	mark(ID)
	for _, r := range roots {
		mark(r)
	}
	for key, n := range t.leaves {
		if !reachable[n] {
			delete(t.leaves, key)
		}
	}
	for key, n := range t.branches {
		if !reachable[n] {
			delete(t.branches, key)
		}
	}
	t.memo = map[memoKey]Node{}
	log.WithFields(log.Fields{
		"roots":     len(roots),
		"reachable": len(reachable),
	}).Debug("Swept FDD intern table")
}

// Drop and ID are the handles of the two distinguished leaves; they are
// the same in every table.
const (
	Drop Node = 0
	ID   Node = 1
)

// Order returns the table's field order.
func (t *Table) Order() nkt.FieldOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.order
}

// NodeCount returns the number of interned nodes (live or swept).
func (t *Table) NodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

func (t *Table) node(n Node) node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[n]
}

// Leaf interns an action-set leaf.
func (t *Table) Leaf(s actions.Set) Node {
	key := s.Key()
	t.mu.RLock()
	n, ok := t.leaves[key]
	t.mu.RUnlock()
	if ok {
		counterInternHits.Inc()
		return n
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.leaves[key]; ok {
		counterInternHits.Inc()
		return n
	}
	counterInternMisses.Inc()
	return t.internLeaf(s)
}

func (t *Table) internLeaf(s actions.Set) Node {
	n := Node(len(t.nodes))
	t.nodes = append(t.nodes, node{leaf: true, acts: s})
	t.leaves[s.Key()] = n
	t.updateGauge()
	return n
}

// mk is the canonical branch constructor.  Callers must already have
// established the ordering precondition: both children's root tests are
// strictly greater than test (the true child never retests the field,
// except with a strictly narrower prefix).
func (t *Table) mk(test nkt.Test, hi, lo Node) Node {
	if hi == lo {
		return hi
	}
	key := branchKey{test: test, hi: hi, lo: lo}
	t.mu.RLock()
	n, ok := t.branches[key]
	t.mu.RUnlock()
	if ok {
		counterInternHits.Inc()
		return n
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.branches[key]; ok {
		counterInternHits.Inc()
		return n
	}
	counterInternMisses.Inc()
	n = Node(len(t.nodes))
	t.nodes = append(t.nodes, node{test: test, hi: hi, lo: lo})
	t.branches[key] = n
	t.updateGauge()
	return n
}

func (t *Table) updateGauge() {
	if t == sharedTable {
		gaugeNodes.Set(float64(len(t.nodes)))
	}
}

func (t *Table) memoGet(op opTag, x, y Node) (Node, bool) {
	t.mu.RLock()
	n, ok := t.memo[memoKey{op: op, x: x, y: y}]
	t.mu.RUnlock()
	if ok {
		counterMemoHits.Inc()
	}
	return n, ok
}

func (t *Table) memoPut(op opTag, x, y, result Node) {
	counterMemoMisses.Inc()
	t.mu.Lock()
	t.memo[memoKey{op: op, x: x, y: y}] = result
	t.mu.Unlock()
}

// IsLeaf reports whether the handle refers to a leaf.
func (t *Table) IsLeaf(n Node) bool {
	return t.node(n).leaf
}

// LeafActions returns a leaf's action set; it must only be called on
// leaves.
func (t *Table) LeafActions(n Node) actions.Set {
	nd := t.node(n)
	if !nd.leaf {
		log.WithField("node", n).Panic("LeafActions called on a branch node")
	}
	return nd.acts
}

// Branch decomposes a branch node; ok is false for leaves.
func (t *Table) Branch(n Node) (test nkt.Test, hi, lo Node, ok bool) {
	nd := t.node(n)
	if nd.leaf {
		return
	}
	return nd.test, nd.hi, nd.lo, true
}

// TestAtom builds the predicate diagram for a single test.
func (t *Table) TestAtom(test nkt.Test) Node {
	return t.mk(test, ID, Drop)
}

// ModAtom builds the leaf for a single field modification.
func (t *Table) ModAtom(f nkt.Field, v nkt.Value) Node {
	return t.Leaf(actions.FromActions(actions.Assign(f, v)))
}

// Size returns the number of nodes reachable from n.
func (t *Table) Size(n Node) int {
	seen := map[Node]bool{}
	var walk func(Node)
	walk = func(n Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		nd := t.node(n)
		if !nd.leaf {
			walk(nd.hi)
			walk(nd.lo)
		}
	}
	walk(n)
	return len(seen)
}

// CompressionRatio returns the reachable node count alongside the node
// count the diagram would have without sharing.
func (t *Table) CompressionRatio(n Node) (shared int, expanded uint64) {
	shared = t.Size(n)
	memo := map[Node]uint64{}
	var count func(Node) uint64
	count = func(n Node) uint64 {
		if c, ok := memo[n]; ok {
			return c
		}
		nd := t.node(n)
		var c uint64 = 1
		if !nd.leaf {
			c += count(nd.hi) + count(nd.lo)
		}
		memo[n] = c
		return c
	}
	expanded = count(n)
	return
}
