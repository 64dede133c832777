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

import "fmt"

// Pred is a NetKAT predicate: a policy whose result on any packet is
// either the packet itself or nothing.
type Pred interface {
	isPred()
	String() string
}

type (
	// TruePred matches every packet.
	TruePred struct{}
	// FalsePred matches no packet.
	FalsePred struct{}
	// TestPred matches packets whose field equals the value.
	TestPred struct{ Test Test }
	// NotPred matches the complement of its operand.
	NotPred struct{ Pred Pred }
	// AndPred is predicate conjunction.
	AndPred struct{ Left, Right Pred }
	// OrPred is predicate disjunction.
	OrPred struct{ Left, Right Pred }
)

func (TruePred) isPred()  {}
func (FalsePred) isPred() {}
func (TestPred) isPred()  {}
func (NotPred) isPred()   {}
func (AndPred) isPred()   {}
func (OrPred) isPred()    {}

func (TruePred) String() string    { return "true" }
func (FalsePred) String() string   { return "false" }
func (p TestPred) String() string  { return p.Test.String() }
func (p NotPred) String() string   { return "not " + p.Pred.String() }
func (p AndPred) String() string   { return "(" + p.Left.String() + " and " + p.Right.String() + ")" }
func (p OrPred) String() string    { return "(" + p.Left.String() + " or " + p.Right.String() + ")" }

// Policy is the NetKAT policy AST.
type Policy interface {
	isPolicy()
	String() string
}

type (
	// FilterPolicy passes packets matching the predicate, drops the rest.
	FilterPolicy struct{ Pred Pred }
	// ModPolicy assigns a value to a header field.
	ModPolicy struct{ Mod Test }
	// UnionPolicy is parallel composition: a copy of the packet through
	// each branch.
	UnionPolicy struct{ Left, Right Policy }
	// SeqPolicy is sequential composition.
	SeqPolicy struct{ Left, Right Policy }
	// StarPolicy is Kleene iteration of its operand.
	StarPolicy struct{ Policy Policy }
	// LinkPolicy is a topology link; it only appears in global programs.
	LinkPolicy struct {
		SrcSwitch, SrcPort uint64
		DstSwitch, DstPort uint64
	}
)

func (FilterPolicy) isPolicy() {}
func (ModPolicy) isPolicy()    {}
func (UnionPolicy) isPolicy()  {}
func (SeqPolicy) isPolicy()    {}
func (StarPolicy) isPolicy()   {}
func (LinkPolicy) isPolicy()   {}

func (p FilterPolicy) String() string { return "filter " + p.Pred.String() }
func (p ModPolicy) String() string {
	return p.Mod.Field.String() + ":=" + p.Mod.Value.String()
}
func (p UnionPolicy) String() string { return "(" + p.Left.String() + " | " + p.Right.String() + ")" }
func (p SeqPolicy) String() string   { return "(" + p.Left.String() + "; " + p.Right.String() + ")" }
func (p StarPolicy) String() string  { return "(" + p.Policy.String() + ")*" }
func (p LinkPolicy) String() string {
	return fmt.Sprintf("%d@%d=>%d@%d", p.SrcSwitch, p.SrcPort, p.DstSwitch, p.DstPort)
}

// Constructors, mirroring the surface syntax.

func True() Pred                       { return TruePred{} }
func False() Pred                      { return FalsePred{} }
func TestEq(f Field, v Value) Pred     { return TestPred{Test: Test{Field: f, Value: v}} }
func Not(p Pred) Pred                  { return NotPred{Pred: p} }
func And(l, r Pred) Pred               { return AndPred{Left: l, Right: r} }
func Or(l, r Pred) Pred                { return OrPred{Left: l, Right: r} }
func Filter(p Pred) Policy             { return FilterPolicy{Pred: p} }
func Mod(f Field, v Value) Policy      { return ModPolicy{Mod: Test{Field: f, Value: v}} }
func Union(l, r Policy) Policy         { return UnionPolicy{Left: l, Right: r} }
func Seq(l, r Policy) Policy           { return SeqPolicy{Left: l, Right: r} }
func Star(p Policy) Policy             { return StarPolicy{Policy: p} }
func Link(s1, p1, s2, p2 uint64) Policy {
	return LinkPolicy{SrcSwitch: s1, SrcPort: p1, DstSwitch: s2, DstPort: p2}
}

// Drop is filter false; ID is filter true.
func Drop() Policy { return FilterPolicy{Pred: FalsePred{}} }
func ID() Policy   { return FilterPolicy{Pred: TruePred{}} }

// Unions folds a list of policies into a balanced union; the empty list is
// drop.
func Unions(ps ...Policy) Policy {
	if len(ps) == 0 {
		return Drop()
	}
	if len(ps) == 1 {
		return ps[0]
	}
	mid := len(ps) / 2
	return Union(Unions(ps[:mid]...), Unions(ps[mid:]...))
}

// Seqs folds a list of policies into a sequence; the empty list is id.
func Seqs(ps ...Policy) Policy {
	if len(ps) == 0 {
		return ID()
	}
	if len(ps) == 1 {
		return ps[0]
	}
	return Seq(ps[0], Seqs(ps[1:]...))
}

// HasLink reports whether the policy contains a Link term.
func HasLink(p Policy) bool {
	switch p := p.(type) {
	case LinkPolicy:
		return true
	case UnionPolicy:
		return HasLink(p.Left) || HasLink(p.Right)
	case SeqPolicy:
		return HasLink(p.Left) || HasLink(p.Right)
	case StarPolicy:
		return HasLink(p.Policy)
	}
	return false
}
