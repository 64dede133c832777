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

package multitable_test

import (
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectcalico/netkat/compiler"
	"github.com/projectcalico/netkat/fdd"
	"github.com/projectcalico/netkat/multitable"
	"github.com/projectcalico/netkat/nkt"
)

// simulate runs a packet through the emitted pipeline, following goto
// metadata, and returns the canonical keys of the output packets.
func simulate(tables []multitable.Table, pkt nkt.Packet) []string {
	tableID, metaID := 0, 0
	for tableID < len(tables) {
		var matched *multitable.Rule
		for i := range tables[tableID].Rules {
			r := &tables[tableID].Rules[i]
			if r.FlowID.MetaID == metaID && r.Pattern.Matches(pkt) {
				matched = r
				break
			}
		}
		if matched == nil {
			return []string{}
		}
		switch instr := matched.Instruction.(type) {
		case multitable.GotoInstruction:
			tableID = instr.Next.TableID
			metaID = instr.Next.MetaID
		case multitable.ApplyInstruction:
			keys := []string{}
			for _, a := range instr.Actions.Actions() {
				keys = append(keys, a.Apply(pkt).Key())
			}
			sort.Strings(keys)
			return keys
		}
	}
	return []string{}
}

func evalKeys(t *fdd.Table, n fdd.Node, pkt nkt.Packet) []string {
	out := t.Eval(pkt, n)
	keys := make([]string, len(out))
	for i, p := range out {
		keys[i] = p.Key()
	}
	return keys
}

var _ = Describe("ToMultiTable", func() {
	layout := multitable.Layout{
		{nkt.EthSrc},
		{nkt.Vlan},
		{nkt.Location},
	}

	opts := func() compiler.Options {
		o := compiler.DefaultOptions()
		o.CachePrepare = compiler.CacheKeep
		o.FieldOrder = compiler.OrderStatic
		order, err := multitable.FieldOrder(layout)
		Expect(err).NotTo(HaveOccurred())
		o.StaticOrder = order.Fields()
		o.RemoveTailDrops = true
		return o
	}

	var (
		t *fdd.Table
		n fdd.Node
	)

	BeforeEach(func() {
		order, err := multitable.FieldOrder(layout)
		Expect(err).NotTo(HaveOccurred())
		t = fdd.NewTable(order)

		p := nkt.Seq(
			nkt.Filter(nkt.TestEq(nkt.EthSrc, nkt.ConstValue(1))),
			nkt.Seq(
				nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(7))),
				nkt.Seq(
					nkt.Filter(nkt.TestEq(nkt.Location, nkt.ConstValue(1))),
					nkt.Mod(nkt.Location, nkt.ConstValue(9)),
				),
			),
		)
		n, err = compiler.CompileLocal(t, p, opts())
		Expect(err).NotTo(HaveOccurred())
	})

	It("produces one table per slab with goto chains", func() {
		tables, groups, err := multitable.ToMultiTable(0, layout, t, n, opts(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(groups).NotTo(BeNil())
		Expect(tables).To(HaveLen(3))

		for _, r := range tables[0].Rules {
			Expect(r.Instruction).To(BeAssignableToTypeOf(multitable.GotoInstruction{}))
			goto0 := r.Instruction.(multitable.GotoInstruction)
			Expect(goto0.Next.TableID).To(Equal(1))
		}
		Expect(tables[1].Rules[0].Instruction).To(BeAssignableToTypeOf(multitable.GotoInstruction{}))
		Expect(tables[2].Rules[0].Instruction).To(BeAssignableToTypeOf(multitable.ApplyInstruction{}))
	})

	It("reproduces the single-table semantics across tables", func() {
		tables, _, err := multitable.ToMultiTable(0, layout, t, n, opts(), nil)
		Expect(err).NotTo(HaveOccurred())
		for _, ethSrc := range []uint64{0, 1} {
			for _, vlan := range []uint64{0, 7} {
				for _, loc := range []uint64{1, 2} {
					pkt := nkt.Packet{
						nkt.EthSrc:   nkt.ConstValue(ethSrc),
						nkt.Vlan:     nkt.ConstValue(vlan),
						nkt.Location: nkt.ConstValue(loc),
					}
					Expect(simulate(tables, pkt)).To(Equal(evalKeys(t, n, pkt)),
						"disagreement on packet %v", pkt.Key())
				}
			}
		}
	})

	It("shares sub-diagrams through one metadata id", func() {
		// Two ethSrc values funnel into the same vlan sub-policy, so
		// table 1 is generated once.
		p := nkt.Seq(
			nkt.Filter(nkt.Or(
				nkt.TestEq(nkt.EthSrc, nkt.ConstValue(1)),
				nkt.TestEq(nkt.EthSrc, nkt.ConstValue(2)),
			)),
			nkt.Seq(
				nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(7))),
				nkt.Mod(nkt.Location, nkt.ConstValue(9)),
			),
		)
		shared, err := compiler.CompileLocal(t, p, opts())
		Expect(err).NotTo(HaveOccurred())
		tables, _, err := multitable.ToMultiTable(0, multitable.Layout{{nkt.EthSrc}, {nkt.Vlan}}, t, shared, opts(), nil)
		Expect(err).NotTo(HaveOccurred())

		metas := map[int]bool{}
		for _, r := range tables[0].Rules {
			g := r.Instruction.(multitable.GotoInstruction)
			metas[g.Next.MetaID] = true
		}
		Expect(metas).To(HaveLen(1))
		Expect(tables[1].Rules).To(HaveLen(1))
	})

	It("hoists multicast leaves into the shared group table", func() {
		p := nkt.Seq(
			nkt.Filter(nkt.TestEq(nkt.EthSrc, nkt.ConstValue(1))),
			nkt.Union(
				nkt.Mod(nkt.Location, nkt.ConstValue(1)),
				nkt.Mod(nkt.Location, nkt.ConstValue(2)),
			),
		)
		mcast, err := compiler.CompileLocal(t, p, opts())
		Expect(err).NotTo(HaveOccurred())
		tables, groups, err := multitable.ToMultiTable(0, multitable.Layout{{nkt.EthSrc}}, t, mcast, opts(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(HaveLen(1))
		instr := tables[0].Rules[0].Instruction.(multitable.ApplyInstruction)
		Expect(instr.GroupID).NotTo(BeZero())
		Expect(groups.Groups()).To(HaveLen(1))
	})

	It("rejects fields no slab covers", func() {
		p := nkt.Seq(
			nkt.Filter(nkt.TestEq(nkt.EthType, nkt.ConstValue(0x800))),
			nkt.Mod(nkt.Location, nkt.ConstValue(1)),
		)
		bad, err := compiler.CompileLocal(t, p, opts())
		Expect(err).NotTo(HaveOccurred())
		_, _, err = multitable.ToMultiTable(0, layout, t, bad, opts(), nil)
		Expect(err).To(BeAssignableToTypeOf(multitable.FieldOutOfLayoutError{}))
	})

	It("rejects overlapping slabs", func() {
		_, _, err := multitable.ToMultiTable(0, multitable.Layout{{nkt.EthSrc}, {nkt.EthSrc}}, t, fdd.Drop, opts(), nil)
		Expect(err).To(BeAssignableToTypeOf(multitable.FieldOutOfLayoutError{}))
	})

	It("derives a layout-compatible field order", func() {
		order, err := multitable.FieldOrder(multitable.Layout{{nkt.Vlan}, {nkt.EthSrc}})
		Expect(err).NotTo(HaveOccurred())
		Expect(order.Less(nkt.Vlan, nkt.EthSrc)).To(BeTrue())
		Expect(order.Less(nkt.EthSrc, nkt.Switch)).To(BeTrue())
	})
})
