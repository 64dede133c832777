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

var _ = Describe("Optimize", func() {
	mod := nkt.Mod(nkt.Vlan, nkt.ConstValue(7))

	DescribeTable("identities",
		func(in, expected nkt.Policy) {
			Expect(nkt.Optimize(in)).To(Equal(expected))
		},
		Entry("id;p", nkt.Seq(nkt.ID(), mod), mod),
		Entry("p;id", nkt.Seq(mod, nkt.ID()), mod),
		Entry("drop;p", nkt.Seq(nkt.Drop(), mod), nkt.Drop()),
		Entry("p;drop", nkt.Seq(mod, nkt.Drop()), nkt.Drop()),
		Entry("p|drop", nkt.Union(mod, nkt.Drop()), mod),
		Entry("drop|p", nkt.Union(nkt.Drop(), mod), mod),
		Entry("star id", nkt.Star(nkt.ID()), nkt.ID()),
		Entry("star drop", nkt.Star(nkt.Drop()), nkt.ID()),
		Entry("filter true and p", nkt.Filter(nkt.And(nkt.True(), nkt.TestEq(nkt.Vlan, nkt.ConstValue(1)))),
			nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(1)))),
		Entry("filter false or p", nkt.Filter(nkt.Or(nkt.False(), nkt.TestEq(nkt.Vlan, nkt.ConstValue(1)))),
			nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(1)))),
		Entry("filter not not p", nkt.Filter(nkt.Not(nkt.Not(nkt.TestEq(nkt.Vlan, nkt.ConstValue(1))))),
			nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(1)))),
		Entry("filter not true", nkt.Filter(nkt.Not(nkt.True())), nkt.Drop()),
	)
})

var _ = Describe("Specialize", func() {
	It("resolves switch tests against the given switch", func() {
		p := nkt.Union(
			nkt.Seq(nkt.Filter(nkt.TestEq(nkt.Switch, nkt.ConstValue(1))), nkt.Mod(nkt.Location, nkt.ConstValue(9))),
			nkt.Seq(nkt.Filter(nkt.TestEq(nkt.Switch, nkt.ConstValue(2))), nkt.Mod(nkt.Location, nkt.ConstValue(8))),
		)
		Expect(nkt.Specialize(p, 1)).To(Equal(nkt.Mod(nkt.Location, nkt.ConstValue(9))))
		Expect(nkt.Specialize(p, 2)).To(Equal(nkt.Mod(nkt.Location, nkt.ConstValue(8))))
		Expect(nkt.Specialize(p, 3)).To(Equal(nkt.Drop()))
	})

	It("leaves other tests alone", func() {
		p := nkt.Filter(nkt.TestEq(nkt.Vlan, nkt.ConstValue(7)))
		Expect(nkt.Specialize(p, 1)).To(Equal(p))
	})
})

var _ = Describe("Policy JSON", func() {
	It("round-trips a representative policy", func() {
		p := nkt.Union(
			nkt.Seq(
				nkt.Filter(nkt.And(
					nkt.TestEq(nkt.EthType, nkt.ConstValue(0x800)),
					nkt.Not(nkt.TestEq(nkt.IP4Dst, nkt.MaskValue(0x0a000000, 8))),
				)),
				nkt.Mod(nkt.Location, nkt.PipeValue("fw")),
			),
			nkt.Star(nkt.Mod(nkt.Vlan, nkt.ConstValue(7))),
		)
		data, err := nkt.MarshalPolicy(p)
		Expect(err).NotTo(HaveOccurred())
		back, err := nkt.UnmarshalPolicy(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal(p))
	})

	It("round-trips links", func() {
		p := nkt.Link(1, 2, 3, 4)
		data, err := nkt.MarshalPolicy(p)
		Expect(err).NotTo(HaveOccurred())
		back, err := nkt.UnmarshalPolicy(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal(p))
	})

	It("rejects unknown terms", func() {
		_, err := nkt.UnmarshalPolicy([]byte(`{"type": "teleport"}`))
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown fields", func() {
		_, err := nkt.UnmarshalPolicy([]byte(`{"type": "mod", "field": "ttl", "value": {"kind": "const", "value": 1}}`))
		Expect(err).To(HaveOccurred())
	})
})
