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
	"sort"

	"github.com/projectcalico/netkat/nkt"
	"github.com/projectcalico/netkat/set"
)

// Eval walks the diagram with a concrete packet, producing the output
// packet set (each action in the matched leaf applied to the packet, equal
// results kept once).  The result is sorted by canonical packet key so it
// is deterministic.
func (t *Table) Eval(pkt nkt.Packet, n Node) []nkt.Packet {
	for {
		nd := t.node(n)
		if nd.leaf {
			out := make([]nkt.Packet, 0, nd.acts.Len())
			for _, a := range nd.acts.Actions() {
				out = append(out, a.Apply(pkt))
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
			// Distinct actions can yield the same packet (id and vlan:=7 on a
			// vlan=7 packet); the output is a set, so keep one copy.
			deduped := out[:0]
			for _, p := range out {
				if k := len(deduped); k > 0 && deduped[k-1].Key() == p.Key() {
					continue
				}
				deduped = append(deduped, p)
			}
			return deduped
		}
		if pkt.Passes(nd.test) {
			n = nd.hi
		} else {
			n = nd.lo
		}
	}
}

// PipeOutputs partitions evaluation output by the packet's location kind.
type PipeOutputs struct {
	Pipes    []nkt.Packet
	Queries  []nkt.Packet
	Physical []nkt.Packet
}

// EvalPipes evaluates the packet and splits the results into controller
// pipe outputs, query outputs and physical outputs.
func (t *Table) EvalPipes(pkt nkt.Packet, n Node) PipeOutputs {
	var out PipeOutputs
	for _, p := range t.Eval(pkt, n) {
		switch p.Get(nkt.Location).Kind {
		case nkt.ValuePipe:
			out.Pipes = append(out.Pipes, p)
		case nkt.ValueQuery:
			out.Queries = append(out.Queries, p)
		default:
			out.Physical = append(out.Physical, p)
		}
	}
	return out
}

// Pipes returns the set of pipe names appearing in leaf actions.
func (t *Table) Pipes(n Node) set.Set[string] {
	pipes := set.New[string]()
	seen := map[Node]bool{}
	var walk func(Node)
	walk = func(n Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		nd := t.node(n)
		if nd.leaf {
			for _, a := range nd.acts.Actions() {
				if v, ok := a.Get(nkt.Location); ok && v.Kind == nkt.ValuePipe {
					pipes.Add(v.Name)
				}
			}
			return
		}
		walk(nd.hi)
		walk(nd.lo)
	}
	walk(n)
	return pipes
}

// Query pairs a query name with the predicate diagram matching the
// packets that reach it.
type Query struct {
	Name string
	Pred Node
}

// Queries returns, for every query name in the diagram, the disjunction
// of the path predicates whose leaves send to it, sorted by name.
func (t *Table) Queries(n Node) []Query {
	cache := map[Node]map[string]Node{}
	var walk func(Node) map[string]Node
	walk = func(n Node) map[string]Node {
		if m, ok := cache[n]; ok {
			return m
		}
		nd := t.node(n)
		m := map[string]Node{}
		if nd.leaf {
			for _, a := range nd.acts.Actions() {
				if v, ok := a.Get(nkt.Location); ok && v.Kind == nkt.ValueQuery {
					m[v.Name] = ID
				}
			}
		} else {
			hi := walk(nd.hi)
			lo := walk(nd.lo)
			for name := range hi {
				m[name] = Drop
			}
			for name := range lo {
				m[name] = Drop
			}
			for name := range m {
				h, ok := hi[name]
				if !ok {
					h = Drop
				}
				l, ok := lo[name]
				if !ok {
					l = Drop
				}
				m[name] = t.Cond(nd.test, h, l)
			}
		}
		cache[n] = m
		return m
	}
	byName := walk(n)
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	queries := make([]Query, len(names))
	for i, name := range names {
		queries[i] = Query{Name: name, Pred: byName[name]}
	}
	return queries
}
