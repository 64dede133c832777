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

package nkt

import (
	"sort"
	"strings"
)

// Packet is a concrete packet header: a total map from field to value.
// Fields not present read as the zero constant.
type Packet map[Field]Value

// Get returns the packet's value for a field, defaulting to the zero
// constant for absent fields.
func (p Packet) Get(f Field) Value {
	if v, ok := p[f]; ok {
		return v
	}
	return ConstValue(0)
}

// Passes reports whether the packet passes a test.
func (p Packet) Passes(t Test) bool {
	return t.Matches(p.Get(t.Field))
}

// Clone returns an independent copy of the packet.
func (p Packet) Clone() Packet {
	cpy := make(Packet, len(p))
	for f, v := range p {
		cpy[f] = v
	}
	return cpy
}

// Key returns a canonical string form, usable for comparing packet sets in
// tests.
func (p Packet) Key() string {
	tests := make([]string, 0, len(p))
	for f, v := range p {
		tests = append(tests, Test{Field: f, Value: v}.String())
	}
	sort.Strings(tests)
	return strings.Join(tests, ",")
}
