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

// Package compiler lowers the policy AST onto the FDD engine.
package compiler

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netkat/fdd"
	"github.com/projectcalico/netkat/nkt"
)

var counterCompiles = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "netkat_compiles_total",
	Help: "Number of policy compilations, by entry point.",
}, []string{"entrypoint"})

func init() {
	prometheus.MustRegister(counterCompiles)
}

// Prepare applies the options' cache and field-order settings to the
// table, returning the order in force for the coming compile.  All
// diagrams composed together must come from one prepared table.
func Prepare(t *fdd.Table, p nkt.Policy, opts Options) (nkt.FieldOrder, error) {
	order, err := opts.order(p)
	if err != nil {
		return order, err
	}
	switch opts.CachePrepare {
	case CacheEmpty:
		t.Reset(order)
	case CachePreserve:
		if t.Order() != order {
			log.Warn("Field order changed; dropping preserved cache entries")
			t.Reset(order)
		} else {
			t.Preserve(opts.PreserveRoots...)
		}
	default: // CacheKeep
		if t.Order() != order {
			// Diagrams over different orders must never mix, so a changed
			// order forces a reset even under Keep.
			log.Warn("Field order changed; resetting intern table despite cachePrepare=keep")
			t.Reset(order)
		}
	}
	return order, nil
}

// CompileLocal compiles a link-free policy to an FDD in the given table.
// It fails with NonLocalError if the policy contains a Link.
func CompileLocal(t *fdd.Table, p nkt.Policy, opts Options) (fdd.Node, error) {
	counterCompiles.WithLabelValues("local").Inc()
	if _, err := Prepare(t, p, opts); err != nil {
		return 0, err
	}
	if opts.Optimize {
		p = nkt.Optimize(p)
	}
	return ofPolicy(t, p)
}

// CompileLocalSwitch specializes the policy to one switch before
// compiling it.
func CompileLocalSwitch(t *fdd.Table, switchID uint64, p nkt.Policy, opts Options) (fdd.Node, error) {
	counterCompiles.WithLabelValues("local_switch").Inc()
	if _, err := Prepare(t, p, opts); err != nil {
		return 0, err
	}
	p = nkt.Specialize(p, switchID)
	if opts.Optimize {
		p = nkt.Optimize(p)
	}
	return ofPolicy(t, p)
}

// CompileGlobal lowers Link terms to their switch/port encoding, then
// compiles locally.  The lowering makes a link behave as "at the source
// end, teleport to the destination end": filter on the source location,
// then assign the destination one.
func CompileGlobal(t *fdd.Table, p nkt.Policy, opts Options) (fdd.Node, error) {
	counterCompiles.WithLabelValues("global").Inc()
	lowered := lowerLinks(p)
	if _, err := Prepare(t, lowered, opts); err != nil {
		return 0, err
	}
	if opts.Optimize {
		lowered = nkt.Optimize(lowered)
	}
	return ofPolicy(t, lowered)
}

func lowerLinks(p nkt.Policy) nkt.Policy {
	switch p := p.(type) {
	case nkt.LinkPolicy:
		return nkt.Seqs(
			nkt.Filter(nkt.And(
				nkt.TestEq(nkt.Switch, nkt.ConstValue(p.SrcSwitch)),
				nkt.TestEq(nkt.Location, nkt.ConstValue(p.SrcPort)),
			)),
			nkt.Mod(nkt.Switch, nkt.ConstValue(p.DstSwitch)),
			nkt.Mod(nkt.Location, nkt.ConstValue(p.DstPort)),
		)
	case nkt.UnionPolicy:
		return nkt.Union(lowerLinks(p.Left), lowerLinks(p.Right))
	case nkt.SeqPolicy:
		return nkt.Seq(lowerLinks(p.Left), lowerLinks(p.Right))
	case nkt.StarPolicy:
		return nkt.Star(lowerLinks(p.Policy))
	}
	return p
}

// ofPolicy is the structural recursion from AST to diagram.
func ofPolicy(t *fdd.Table, p nkt.Policy) (fdd.Node, error) {
	switch p := p.(type) {
	case nkt.FilterPolicy:
		return ofPred(t, p.Pred)
	case nkt.ModPolicy:
		return t.ModAtom(p.Mod.Field, p.Mod.Value), nil
	case nkt.UnionPolicy:
		l, err := ofPolicy(t, p.Left)
		if err != nil {
			return 0, err
		}
		r, err := ofPolicy(t, p.Right)
		if err != nil {
			return 0, err
		}
		return t.Union(l, r), nil
	case nkt.SeqPolicy:
		l, err := ofPolicy(t, p.Left)
		if err != nil {
			return 0, err
		}
		r, err := ofPolicy(t, p.Right)
		if err != nil {
			return 0, err
		}
		return t.Seq(l, r), nil
	case nkt.StarPolicy:
		inner, err := ofPolicy(t, p.Policy)
		if err != nil {
			return 0, err
		}
		return t.Star(inner), nil
	case nkt.LinkPolicy:
		return 0, NonLocalError{Policy: p}
	}
	return 0, NonLocalError{Policy: p}
}

func ofPred(t *fdd.Table, p nkt.Pred) (fdd.Node, error) {
	switch p := p.(type) {
	case nkt.TruePred:
		return fdd.ID, nil
	case nkt.FalsePred:
		return fdd.Drop, nil
	case nkt.TestPred:
		return t.TestAtom(p.Test), nil
	case nkt.NotPred:
		inner, err := ofPred(t, p.Pred)
		if err != nil {
			return 0, err
		}
		return t.Negate(inner)
	case nkt.AndPred:
		l, err := ofPred(t, p.Left)
		if err != nil {
			return 0, err
		}
		r, err := ofPred(t, p.Right)
		if err != nil {
			return 0, err
		}
		return t.Seq(l, r), nil
	case nkt.OrPred:
		l, err := ofPred(t, p.Left)
		if err != nil {
			return 0, err
		}
		r, err := ofPred(t, p.Right)
		if err != nil {
			return 0, err
		}
		return t.Union(l, r), nil
	}
	return fdd.Drop, nil
}
