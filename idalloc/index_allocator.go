// Copyright (c) 2020-2025 Tigera, Inc. All rights reserved.
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

package idalloc

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

// IndexRange is an inclusive range of indices available for allocation.
type IndexRange struct {
	Min, Max int
}

// IndexAllocator hands out indices from a fixed pool of ranges; lowest free
// index first.  Used for OpenFlow group ids and multi-table metadata ids.
type IndexAllocator struct {
	free   *bitset.BitSet
	ranges []IndexRange
}

func NewIndexAllocator(indexRanges ...IndexRange) *IndexAllocator {
	max := 0
	for _, r := range indexRanges {
		if r.Min < 0 || r.Min > r.Max {
			return nil
		}
		if r.Max > max {
			max = r.Max
		}
	}
	r := &IndexAllocator{
		free:   bitset.New(uint(max + 1)),
		ranges: indexRanges,
	}
	for _, ir := range indexRanges {
		for i := ir.Min; i <= ir.Max; i++ {
			r.free.Set(uint(i))
		}
	}
	return r
}

func (r *IndexAllocator) GrabIndex() (int, error) {
	idx, ok := r.free.NextSet(0)
	if !ok {
		return 0, errors.New("no more indices available")
	}
	r.free.Clear(idx)
	return int(idx), nil
}

func (r *IndexAllocator) ReleaseIndex(index int) error {
	if !r.contains(index) {
		return errors.Errorf("index %d outside allocator ranges", index)
	}
	r.free.Set(uint(index))
	return nil
}

func (r *IndexAllocator) IndexAvailable(index int) bool {
	if !r.contains(index) {
		return false
	}
	return r.free.Test(uint(index))
}

func (r *IndexAllocator) contains(index int) bool {
	for _, ir := range r.ranges {
		if index >= ir.Min && index <= ir.Max {
			return true
		}
	}
	return false
}
