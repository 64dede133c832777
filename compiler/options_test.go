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

package compiler_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectcalico/netkat/compiler"
	"github.com/projectcalico/netkat/nkt"
)

var _ = Describe("Options JSON", func() {
	It("round-trips the defaults", func() {
		data, err := compiler.MarshalOptions(compiler.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		opts, err := compiler.ParseOptions(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(opts).To(Equal(compiler.DefaultOptions()))
	})

	It("parses each knob", func() {
		opts, err := compiler.ParseOptions([]byte(`{
			"cachePrepare": "keep",
			"fieldOrder": "static",
			"staticOrder": ["vlanId", "switch", "location", "vswitch", "vport",
				"vfabric", "ethSrc", "ethDst", "vlanPcp", "ethTyp", "ipProto",
				"ip4Src", "ip4Dst", "tcpSrcPort", "tcpDstPort"],
			"removeTailDrops": true,
			"dedupFlows": false,
			"optimize": false,
			"openflowAdherence": "sloppy",
			"defaultPort": 4
		}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.CachePrepare).To(Equal(compiler.CacheKeep))
		Expect(opts.FieldOrder).To(Equal(compiler.OrderStatic))
		Expect(opts.StaticOrder[0]).To(Equal(nkt.Vlan))
		Expect(opts.RemoveTailDrops).To(BeTrue())
		Expect(opts.DedupFlows).To(BeFalse())
		Expect(opts.Optimize).To(BeFalse())
		Expect(opts.Adherence).To(Equal(compiler.Sloppy))
		Expect(*opts.DefaultPort).To(Equal(uint32(4)))
	})

	It("rejects unknown keys under strict adherence", func() {
		_, err := compiler.ParseOptions([]byte(`{"openflowAdherence": "strict", "frobnicate": true}`))
		Expect(err).To(HaveOccurred())
	})

	It("ignores unknown keys under sloppy adherence", func() {
		opts, err := compiler.ParseOptions([]byte(`{"openflowAdherence": "sloppy", "frobnicate": true}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.Adherence).To(Equal(compiler.Sloppy))
	})

	It("rejects a partial static order", func() {
		_, err := compiler.ParseOptions([]byte(`{"fieldOrder": "static", "staticOrder": ["vlanId"]}`))
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown enum values", func() {
		_, err := compiler.ParseOptions([]byte(`{"cachePrepare": "sometimes"}`))
		Expect(err).To(HaveOccurred())
	})
})
