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

// Package nkt carries the NetKAT surface model: header fields and values,
// the policy and predicate AST, packets, and the policy-level rewrites
// (specialization and algebraic simplification).  The symbolic engine that
// compiles these terms lives in the fdd package.
package nkt

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Field identifies one packet header field.  The set is closed; the
// declaration order below is the default total order used by the compiler.
type Field uint8

const (
	Switch Field = iota
	Location
	VSwitch
	VPort
	VFabric
	EthSrc
	EthDst
	Vlan
	VlanPcp
	EthType
	IPProto
	IP4Src
	IP4Dst
	TCPSrcPort
	TCPDstPort

	NumFields = int(TCPDstPort) + 1
)

var fieldNames = [NumFields]string{
	"switch",
	"location",
	"vswitch",
	"vport",
	"vfabric",
	"ethSrc",
	"ethDst",
	"vlanId",
	"vlanPcp",
	"ethTyp",
	"ipProto",
	"ip4Src",
	"ip4Dst",
	"tcpSrcPort",
	"tcpDstPort",
}

func (f Field) String() string {
	if int(f) >= NumFields {
		return "unknown"
	}
	return fieldNames[f]
}

// AllFields returns the fields in declaration order.
func AllFields() []Field {
	fields := make([]Field, NumFields)
	for i := range fields {
		fields[i] = Field(i)
	}
	return fields
}

// ParseField is the inverse of Field.String.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, errors.Errorf("unknown header field %q", name)
}

// MarshalJSON serializes a field as its name.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON parses a field from its name.
func (f *Field) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseField(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// IsIPField reports whether the field admits prefix (masked) values.
func (f Field) IsIPField() bool {
	return f == IP4Src || f == IP4Dst
}

// Width returns the field's width in bits on the wire.
func (f Field) Width() uint8 {
	switch f {
	case Switch:
		return 64
	case EthSrc, EthDst:
		return 48
	case IP4Src, IP4Dst:
		return 32
	case Location, VSwitch, VPort, VFabric:
		return 32
	case Vlan, EthType, TCPSrcPort, TCPDstPort:
		return 16
	case IPProto:
		return 8
	case VlanPcp:
		return 3
	}
	return 64
}
