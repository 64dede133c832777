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

package nkt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectcalico/netkat/nkt"
)

var _ = Describe("Value", func() {
	net10 := nkt.MaskValue(0x0a000000, 8)
	net10_1 := nkt.MaskValue(0x0a010000, 16)
	net11 := nkt.MaskValue(0x0b000000, 8)
	host10_1 := nkt.ConstValue(0x0a010203)

	It("canonicalizes prefixes by zeroing host bits", func() {
		Expect(nkt.MaskValue(0x0a010203, 8)).To(Equal(net10))
	})

	It("folds full-length prefixes to constants", func() {
		Expect(nkt.MaskValue(42, 32).Kind).To(Equal(nkt.ValueConst))
	})

	DescribeTable("SubsumesValue",
		func(a, b nkt.Value, expected bool) {
			Expect(a.SubsumesValue(b)).To(Equal(expected))
		},
		Entry("equal constants", nkt.ConstValue(7), nkt.ConstValue(7), true),
		Entry("different constants", nkt.ConstValue(7), nkt.ConstValue(8), false),
		Entry("broad prefix over narrow", net10, net10_1, true),
		Entry("narrow prefix over broad", net10_1, net10, false),
		Entry("prefix over contained host", net10, host10_1, true),
		Entry("prefix over outside host", net11, host10_1, false),
		Entry("host over prefix", host10_1, net10, false),
		Entry("pipe over same pipe", nkt.PipeValue("p"), nkt.PipeValue("p"), true),
		Entry("pipe over other pipe", nkt.PipeValue("p"), nkt.PipeValue("q"), false),
	)

	DescribeTable("DisjointValue",
		func(a, b nkt.Value, expected bool) {
			Expect(a.DisjointValue(b)).To(Equal(expected))
			Expect(b.DisjointValue(a)).To(Equal(expected))
		},
		Entry("nested prefixes", net10, net10_1, false),
		Entry("sibling prefixes", net10, net11, true),
		Entry("different constants", nkt.ConstValue(1), nkt.ConstValue(2), true),
	)

	It("orders by kind first, then payload", func() {
		Expect(nkt.ConstValue(9).Compare(net10)).To(BeNumerically("<", 0))
		Expect(net10.Compare(net10_1)).To(BeNumerically("<", 0))
		Expect(nkt.PipeValue("a").Compare(nkt.PipeValue("b"))).To(BeNumerically("<", 0))
		Expect(nkt.PipeValue("a").Compare(nkt.QueryValue("a"))).To(BeNumerically("<", 0))
	})

	It("round-trips fast-fail port lists", func() {
		v := nkt.FastFailValue([]uint32{3, 1, 2})
		Expect(v.FastFailPorts()).To(Equal([]uint32{3, 1, 2}))
	})

	It("stringifies prefixes dotted", func() {
		Expect(net10.String()).To(Equal("10.0.0.0/8"))
	})
})

var _ = Describe("FieldOrder", func() {
	It("defaults to declaration order", func() {
		o := nkt.DefaultOrder()
		Expect(o.Less(nkt.Switch, nkt.Location)).To(BeTrue())
		Expect(o.Less(nkt.TCPDstPort, nkt.Switch)).To(BeFalse())
	})

	It("rejects non-permutations", func() {
		_, err := nkt.StaticOrder(nkt.Switch, nkt.Switch)
		Expect(err).To(HaveOccurred())
	})

	It("accepts a full permutation", func() {
		fields := nkt.AllFields()
		// Move vlan to the front.
		reordered := []nkt.Field{nkt.Vlan}
		for _, f := range fields {
			if f != nkt.Vlan {
				reordered = append(reordered, f)
			}
		}
		o, err := nkt.StaticOrder(reordered...)
		Expect(err).NotTo(HaveOccurred())
		Expect(o.Less(nkt.Vlan, nkt.Switch)).To(BeTrue())
		Expect(o.Fields()[0]).To(Equal(nkt.Vlan))
	})

	It("ranks the most-tested field first heuristically", func() {
		p := nkt.Union(
			nkt.Seq(nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(1))), nkt.Mod(nkt.Location, nkt.ConstValue(2))),
			nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(2))),
		)
		o := nkt.HeuristicOrder(p)
		Expect(o.Rank(nkt.Vlan)).To(Equal(0))
	})

	It("orders tests by field rank then value", func() {
		o := nkt.DefaultOrder()
		a := nkt.Test{Field: nkt.Vlan, Value: nkt.ConstValue(1)}
		b := nkt.Test{Field: nkt.Vlan, Value: nkt.ConstValue(2)}
		c := nkt.Test{Field: nkt.EthType, Value: nkt.ConstValue(0)}
		Expect(o.CompareTests(a, b)).To(BeNumerically("<", 0))
		Expect(o.CompareTests(b, c)).To(BeNumerically("<", 0))
	})
})
