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

package fdd_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectcalico/netkat/actions"
	"github.com/projectcalico/netkat/fdd"
	"github.com/projectcalico/netkat/nkt"
)

var _ = Describe("Interpreter", func() {
	var t *fdd.Table

	BeforeEach(func() {
		t = fdd.NewTable(nkt.DefaultOrder())
	})

	It("follows branches by packet value", func() {
		x := t.Seq(
			t.TestAtom(nkt.Test{Field: nkt.Vlan, Value: nkt.ConstValue(7)}),
			t.ModAtom(nkt.Location, nkt.ConstValue(2)),
		)
		hit := t.Eval(nkt.Packet{nkt.Vlan: nkt.ConstValue(7)}, x)
		Expect(hit).To(HaveLen(1))
		Expect(hit[0].Get(nkt.Location)).To(Equal(nkt.ConstValue(2)))
		miss := t.Eval(nkt.Packet{nkt.Vlan: nkt.ConstValue(8)}, x)
		Expect(miss).To(BeEmpty())
	})

	It("matches IP prefixes against concrete addresses", func() {
		x := t.Seq(
			t.TestAtom(nkt.Test{Field: nkt.IP4Dst, Value: nkt.MaskValue(0x0a000000, 8)}),
			t.ModAtom(nkt.Location, nkt.ConstValue(1)),
		)
		in := t.Eval(nkt.Packet{nkt.IP4Dst: nkt.ConstValue(0x0a010203)}, x)
		Expect(in).To(HaveLen(1))
		out := t.Eval(nkt.Packet{nkt.IP4Dst: nkt.ConstValue(0x0b010203)}, x)
		Expect(out).To(BeEmpty())
	})

	It("emits one packet per action", func() {
		x := t.Leaf(actions.FromActions(
			actions.Assign(nkt.Location, nkt.ConstValue(1)),
			actions.Assign(nkt.Location, nkt.ConstValue(2)),
		))
		Expect(t.Eval(nkt.Packet{}, x)).To(HaveLen(2))
	})

	It("partitions outputs by location kind", func() {
		x := t.Leaf(actions.FromActions(
			actions.Assign(nkt.Location, nkt.PipeValue("ctrl")),
			actions.Assign(nkt.Location, nkt.QueryValue("stats")),
			actions.Assign(nkt.Location, nkt.ConstValue(3)),
		))
		out := t.EvalPipes(nkt.Packet{}, x)
		Expect(out.Pipes).To(HaveLen(1))
		Expect(out.Queries).To(HaveLen(1))
		Expect(out.Physical).To(HaveLen(1))
	})

	It("collects pipe names", func() {
		x := t.Union(
			t.ModAtom(nkt.Location, nkt.PipeValue("ctrl")),
			t.Seq(
				t.TestAtom(nkt.Test{Field: nkt.Vlan, Value: nkt.ConstValue(1)}),
				t.ModAtom(nkt.Location, nkt.PipeValue("ids")),
			),
		)
		Expect(t.Pipes(x).Slice()).To(ConsistOf("ctrl", "ids"))
	})

	It("builds per-query path predicates", func() {
		x := t.Union(
			t.Seq(
				t.TestAtom(nkt.Test{Field: nkt.Vlan, Value: nkt.ConstValue(1)}),
				t.ModAtom(nkt.Location, nkt.QueryValue("stats")),
			),
			t.ModAtom(nkt.Location, nkt.ConstValue(2)),
		)
		queries := t.Queries(x)
		Expect(queries).To(HaveLen(1))
		Expect(queries[0].Name).To(Equal("stats"))
		Expect(queries[0].Pred).To(Equal(t.TestAtom(nkt.Test{Field: nkt.Vlan, Value: nkt.ConstValue(1)})))
	})
})
