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
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the per-field value representation.
type ValueKind uint8

const (
	// ValueConst is an integer constant of the field's width.
	ValueConst ValueKind = iota
	// ValueMask is an IP prefix (base, prefix length).
	ValueMask
	// ValuePipe is a symbolic controller-pipe location.
	ValuePipe
	// ValueQuery is a symbolic query-sink location.
	ValueQuery
	// ValueFastFail is a fast-failover port list location.
	ValueFastFail
)

// Value is a header-field value.  Like the address types in felix's ip
// package, it is backed by fixed-size comparable storage so it can be used
// directly as a map key; the fast-fail port list is canonicalized into the
// Name field to keep the struct comparable.
type Value struct {
	Kind ValueKind
	Num  uint64
	Bits uint8
	Name string
}

func ConstValue(n uint64) Value {
	return Value{Kind: ValueConst, Num: n}
}

func MaskValue(base uint64, bits uint8) Value {
	if bits >= 32 {
		// A full-length prefix is just a constant.
		return Value{Kind: ValueConst, Num: base}
	}
	// Zero the bits below the prefix so equal prefixes have equal keys.
	base &^= (uint64(1) << (32 - bits)) - 1
	return Value{Kind: ValueMask, Num: base, Bits: bits}
}

// InPortValue is the reserved wire port that forwards a packet back out
// of its ingress port; the identity action lowers to it.
func InPortValue() Value {
	return ConstValue(0xfffffff8)
}

func PipeValue(name string) Value {
	return Value{Kind: ValuePipe, Name: name}
}

func QueryValue(name string) Value {
	return Value{Kind: ValueQuery, Name: name}
}

func FastFailValue(ports []uint32) Value {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.FormatUint(uint64(p), 10)
	}
	return Value{Kind: ValueFastFail, Name: strings.Join(parts, ",")}
}

// FastFailPorts decodes the canonical port list of a ValueFastFail value.
func (v Value) FastFailPorts() []uint32 {
	if v.Kind != ValueFastFail || v.Name == "" {
		return nil
	}
	parts := strings.Split(v.Name, ",")
	ports := make([]uint32, len(parts))
	for i, p := range parts {
		n, _ := strconv.ParseUint(p, 10, 32)
		ports[i] = uint32(n)
	}
	return ports
}

// Compare defines the total order over values: by kind tag, then by the
// tag's payload.
func (v Value) Compare(other Value) int {
	switch {
	case v.Kind < other.Kind:
		return -1
	case v.Kind > other.Kind:
		return 1
	}
	switch v.Kind {
	case ValueConst:
		return cmpUint64(v.Num, other.Num)
	case ValueMask:
		if c := cmpUint64(v.Num, other.Num); c != 0 {
			return c
		}
		return int(v.Bits) - int(other.Bits)
	default:
		return strings.Compare(v.Name, other.Name)
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SubsumesValue reports whether every concrete field value matching other
// also matches v.  For constants this is equality; a shorter prefix
// subsumes a longer one with the same leading bits.
func (v Value) SubsumesValue(other Value) bool {
	if v.Kind == ValueMask {
		otherBits := uint8(32)
		if other.Kind == ValueMask {
			otherBits = other.Bits
		} else if other.Kind != ValueConst {
			return false
		}
		if v.Bits > otherBits {
			return false
		}
		mask := prefixMask(v.Bits)
		return v.Num&mask == other.Num&mask
	}
	return v == other
}

// DisjointValue reports whether no concrete field value matches both v and
// other.
func (v Value) DisjointValue(other Value) bool {
	return !v.SubsumesValue(other) && !other.SubsumesValue(v)
}

func prefixMask(bits uint8) uint64 {
	if bits == 0 {
		return 0
	}
	return ^uint64(0) << (32 - bits) & 0xffffffff
}

func (v Value) String() string {
	switch v.Kind {
	case ValueConst:
		return strconv.FormatUint(v.Num, 10)
	case ValueMask:
		return fmt.Sprintf("%d.%d.%d.%d/%d",
			byte(v.Num>>24), byte(v.Num>>16), byte(v.Num>>8), byte(v.Num), v.Bits)
	case ValuePipe:
		return "pipe(" + v.Name + ")"
	case ValueQuery:
		return "query(" + v.Name + ")"
	case ValueFastFail:
		return "fastFail[" + v.Name + "]"
	}
	return "invalid"
}

// Test is a single "field equals value" check (prefix semantics for IP
// fields).  The same pair doubles as a field modification when used as an
// assignment.
type Test struct {
	Field Field
	Value Value
}

func (t Test) String() string {
	return t.Field.String() + "=" + t.Value.String()
}

// Matches reports whether a concrete packet value passes the test.
func (t Test) Matches(v Value) bool {
	return t.Value.SubsumesValue(v)
}
