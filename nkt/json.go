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
	"encoding/json"

	"github.com/pkg/errors"
)

// The JSON policy surface mirrors the classic controller wire format:
// every term is an object tagged by "type", with n-ary "pols"/"preds"
// arrays for union, sequence, conjunction and disjunction.

type jsonTerm struct {
	Type  string     `json:"type"`
	Pred  *jsonTerm  `json:"pred,omitempty"`
	Preds []jsonTerm `json:"preds,omitempty"`
	Pols  []jsonTerm `json:"pols,omitempty"`
	Field string     `json:"field,omitempty"`
	Value *jsonValue `json:"value,omitempty"`

	// Link endpoints.
	SrcSwitch uint64 `json:"srcSwitch,omitempty"`
	SrcPort   uint64 `json:"srcPort,omitempty"`
	DstSwitch uint64 `json:"dstSwitch,omitempty"`
	DstPort   uint64 `json:"dstPort,omitempty"`
}

type jsonValue struct {
	Kind  string   `json:"kind"`
	Value uint64   `json:"value,omitempty"`
	Bits  uint8    `json:"bits,omitempty"`
	Name  string   `json:"name,omitempty"`
	Ports []uint32 `json:"ports,omitempty"`
}

// MarshalPolicy serializes a policy to the JSON surface form.
func MarshalPolicy(p Policy) ([]byte, error) {
	return json.MarshalIndent(policyToJSON(p), "", "  ")
}

// UnmarshalPolicy parses the JSON surface form.
func UnmarshalPolicy(data []byte) (Policy, error) {
	var t jsonTerm
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.WithMessage(err, "parsing policy JSON")
	}
	return policyFromJSON(t)
}

func valueToJSON(v Value) *jsonValue {
	switch v.Kind {
	case ValueConst:
		return &jsonValue{Kind: "const", Value: v.Num}
	case ValueMask:
		return &jsonValue{Kind: "mask", Value: v.Num, Bits: v.Bits}
	case ValuePipe:
		return &jsonValue{Kind: "pipe", Name: v.Name}
	case ValueQuery:
		return &jsonValue{Kind: "query", Name: v.Name}
	case ValueFastFail:
		return &jsonValue{Kind: "fastFail", Ports: v.FastFailPorts()}
	}
	return nil
}

func valueFromJSON(v *jsonValue) (Value, error) {
	if v == nil {
		return Value{}, errors.New("missing value")
	}
	switch v.Kind {
	case "const":
		return ConstValue(v.Value), nil
	case "mask":
		return MaskValue(v.Value, v.Bits), nil
	case "pipe":
		return PipeValue(v.Name), nil
	case "query":
		return QueryValue(v.Name), nil
	case "fastFail":
		return FastFailValue(v.Ports), nil
	}
	return Value{}, errors.Errorf("unknown value kind %q", v.Kind)
}

func predToJSON(p Pred) jsonTerm {
	switch p := p.(type) {
	case TruePred:
		return jsonTerm{Type: "true"}
	case FalsePred:
		return jsonTerm{Type: "false"}
	case TestPred:
		return jsonTerm{Type: "test", Field: p.Test.Field.String(), Value: valueToJSON(p.Test.Value)}
	case NotPred:
		inner := predToJSON(p.Pred)
		return jsonTerm{Type: "neg", Pred: &inner}
	case AndPred:
		return jsonTerm{Type: "and", Preds: []jsonTerm{predToJSON(p.Left), predToJSON(p.Right)}}
	case OrPred:
		return jsonTerm{Type: "or", Preds: []jsonTerm{predToJSON(p.Left), predToJSON(p.Right)}}
	}
	return jsonTerm{Type: "false"}
}

func predFromJSON(t jsonTerm) (Pred, error) {
	switch t.Type {
	case "true":
		return TruePred{}, nil
	case "false":
		return FalsePred{}, nil
	case "test":
		f, err := ParseField(t.Field)
		if err != nil {
			return nil, err
		}
		v, err := valueFromJSON(t.Value)
		if err != nil {
			return nil, err
		}
		return TestEq(f, v), nil
	case "neg":
		if t.Pred == nil {
			return nil, errors.New("neg predicate missing operand")
		}
		inner, err := predFromJSON(*t.Pred)
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	case "and", "or":
		if len(t.Preds) == 0 {
			if t.Type == "and" {
				return TruePred{}, nil
			}
			return FalsePred{}, nil
		}
		acc, err := predFromJSON(t.Preds[0])
		if err != nil {
			return nil, err
		}
		for _, sub := range t.Preds[1:] {
			p, err := predFromJSON(sub)
			if err != nil {
				return nil, err
			}
			if t.Type == "and" {
				acc = And(acc, p)
			} else {
				acc = Or(acc, p)
			}
		}
		return acc, nil
	}
	return nil, errors.Errorf("unknown predicate type %q", t.Type)
}

func policyToJSON(p Policy) jsonTerm {
	switch p := p.(type) {
	case FilterPolicy:
		pred := predToJSON(p.Pred)
		return jsonTerm{Type: "filter", Pred: &pred}
	case ModPolicy:
		return jsonTerm{Type: "mod", Field: p.Mod.Field.String(), Value: valueToJSON(p.Mod.Value)}
	case UnionPolicy:
		return jsonTerm{Type: "union", Pols: []jsonTerm{policyToJSON(p.Left), policyToJSON(p.Right)}}
	case SeqPolicy:
		return jsonTerm{Type: "seq", Pols: []jsonTerm{policyToJSON(p.Left), policyToJSON(p.Right)}}
	case StarPolicy:
		return jsonTerm{Type: "star", Pols: []jsonTerm{policyToJSON(p.Policy)}}
	case LinkPolicy:
		return jsonTerm{
			Type:      "link",
			SrcSwitch: p.SrcSwitch, SrcPort: p.SrcPort,
			DstSwitch: p.DstSwitch, DstPort: p.DstPort,
		}
	}
	return jsonTerm{Type: "filter", Pred: &jsonTerm{Type: "false"}}
}

func policyFromJSON(t jsonTerm) (Policy, error) {
	switch t.Type {
	case "filter":
		if t.Pred == nil {
			return nil, errors.New("filter missing predicate")
		}
		pred, err := predFromJSON(*t.Pred)
		if err != nil {
			return nil, err
		}
		return Filter(pred), nil
	case "mod":
		f, err := ParseField(t.Field)
		if err != nil {
			return nil, err
		}
		v, err := valueFromJSON(t.Value)
		if err != nil {
			return nil, err
		}
		return Mod(f, v), nil
	case "union", "seq":
		if len(t.Pols) == 0 {
			if t.Type == "union" {
				return Drop(), nil
			}
			return ID(), nil
		}
		acc, err := policyFromJSON(t.Pols[0])
		if err != nil {
			return nil, err
		}
		for _, sub := range t.Pols[1:] {
			p, err := policyFromJSON(sub)
			if err != nil {
				return nil, err
			}
			if t.Type == "union" {
				acc = Union(acc, p)
			} else {
				acc = Seq(acc, p)
			}
		}
		return acc, nil
	case "star":
		if len(t.Pols) != 1 {
			return nil, errors.New("star takes exactly one operand")
		}
		inner, err := policyFromJSON(t.Pols[0])
		if err != nil {
			return nil, err
		}
		return Star(inner), nil
	case "link":
		return Link(t.SrcSwitch, t.SrcPort, t.DstSwitch, t.DstPort), nil
	}
	return nil, errors.Errorf("unknown policy type %q", t.Type)
}
