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

package idalloc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/projectcalico/netkat/idalloc"
)

var _ = Describe("IndexAllocator", func() {
	var r *IndexAllocator

	Context("with two disjoint ranges", func() {
		BeforeEach(func() {
			r = NewIndexAllocator(IndexRange{Min: 43, Max: 44}, IndexRange{Min: 2, Max: 4})
			Expect(r).NotTo(BeNil())
		})

		It("allocates lowest-first across both ranges", func() {
			for _, want := range []int{2, 3, 4, 43, 44} {
				idx, err := r.GrabIndex()
				Expect(err).NotTo(HaveOccurred())
				Expect(idx).To(Equal(want))
			}
			_, err := r.GrabIndex()
			Expect(err).To(HaveOccurred())
		})

		It("reuses released indices", func() {
			idx, err := r.GrabIndex()
			Expect(err).NotTo(HaveOccurred())
			Expect(r.IndexAvailable(idx)).To(BeFalse())
			Expect(r.ReleaseIndex(idx)).NotTo(HaveOccurred())
			Expect(r.IndexAvailable(idx)).To(BeTrue())
			again, err := r.GrabIndex()
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(idx))
		})

		It("rejects out-of-range releases", func() {
			Expect(r.ReleaseIndex(7)).To(HaveOccurred())
		})
	})

	It("returns nil for an inverted range", func() {
		Expect(NewIndexAllocator(IndexRange{Min: 5, Max: 4})).To(BeNil())
	})
})
