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

// Specialize partially evaluates all switch tests against the given switch
// id and simplifies the result.  The returned policy behaves, on packets at
// that switch, exactly like the input.
func Specialize(p Policy, switchID uint64) Policy {
	return Optimize(rewritePolicy(p, func(t Test) Pred {
		if t.Field != Switch {
			return TestPred{Test: t}
		}
		if t.Matches(ConstValue(switchID)) {
			return TruePred{}
		}
		return FalsePred{}
	}))
}

// Optimize applies the usual Boolean and Kleene-algebra identities:
// True/False short-circuit through And/Or and Not, id/drop absorb through
// Seq/Union, and Star of id or drop folds to id.
func Optimize(p Policy) Policy {
	switch p := p.(type) {
	case FilterPolicy:
		return FilterPolicy{Pred: optimizePred(p.Pred)}
	case UnionPolicy:
		l, r := Optimize(p.Left), Optimize(p.Right)
		if isDropPolicy(l) {
			return r
		}
		if isDropPolicy(r) {
			return l
		}
		return UnionPolicy{Left: l, Right: r}
	case SeqPolicy:
		l, r := Optimize(p.Left), Optimize(p.Right)
		if isDropPolicy(l) || isDropPolicy(r) {
			return Drop()
		}
		if isIDPolicy(l) {
			return r
		}
		if isIDPolicy(r) {
			return l
		}
		return SeqPolicy{Left: l, Right: r}
	case StarPolicy:
		inner := Optimize(p.Policy)
		if isIDPolicy(inner) || isDropPolicy(inner) {
			return ID()
		}
		return StarPolicy{Policy: inner}
	}
	return p
}

func optimizePred(p Pred) Pred {
	switch p := p.(type) {
	case NotPred:
		switch inner := optimizePred(p.Pred).(type) {
		case TruePred:
			return FalsePred{}
		case FalsePred:
			return TruePred{}
		case NotPred:
			return inner.Pred
		default:
			return NotPred{Pred: inner}
		}
	case AndPred:
		l, r := optimizePred(p.Left), optimizePred(p.Right)
		if isFalse(l) || isFalse(r) {
			return FalsePred{}
		}
		if isTrue(l) {
			return r
		}
		if isTrue(r) {
			return l
		}
		return AndPred{Left: l, Right: r}
	case OrPred:
		l, r := optimizePred(p.Left), optimizePred(p.Right)
		if isTrue(l) || isTrue(r) {
			return TruePred{}
		}
		if isFalse(l) {
			return r
		}
		if isFalse(r) {
			return l
		}
		return OrPred{Left: l, Right: r}
	}
	return p
}

func isTrue(p Pred) bool {
	_, ok := p.(TruePred)
	return ok
}

func isFalse(p Pred) bool {
	_, ok := p.(FalsePred)
	return ok
}

func isIDPolicy(p Policy) bool {
	f, ok := p.(FilterPolicy)
	return ok && isTrue(f.Pred)
}

func isDropPolicy(p Policy) bool {
	f, ok := p.(FilterPolicy)
	return ok && isFalse(f.Pred)
}

// rewritePolicy maps every test in the policy's predicates through fn,
// leaving modifications untouched.
func rewritePolicy(p Policy, fn func(Test) Pred) Policy {
	switch p := p.(type) {
	case FilterPolicy:
		return FilterPolicy{Pred: rewritePred(p.Pred, fn)}
	case UnionPolicy:
		return UnionPolicy{Left: rewritePolicy(p.Left, fn), Right: rewritePolicy(p.Right, fn)}
	case SeqPolicy:
		return SeqPolicy{Left: rewritePolicy(p.Left, fn), Right: rewritePolicy(p.Right, fn)}
	case StarPolicy:
		return StarPolicy{Policy: rewritePolicy(p.Policy, fn)}
	}
	return p
}

func rewritePred(p Pred, fn func(Test) Pred) Pred {
	switch p := p.(type) {
	case TestPred:
		return fn(p.Test)
	case NotPred:
		return NotPred{Pred: rewritePred(p.Pred, fn)}
	case AndPred:
		return AndPred{Left: rewritePred(p.Left, fn), Right: rewritePred(p.Right, fn)}
	case OrPred:
		return OrPred{Left: rewritePred(p.Left, fn), Right: rewritePred(p.Right, fn)}
	}
	return p
}
