// Copyright (c) 2016-2025 Tigera, Inc. All rights reserved.
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

package set

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Set is a map-backed set of comparable items.
type Set[T comparable] interface {
	Len() int
	Add(T)
	AddAll(itemArray []T)
	AddSet(other Set[T])
	Discard(T)
	Clear()
	Contains(T) bool
	ContainsAll(Set[T]) bool
	// Iter calls the given function once per item; returning StopIteration
	// from the function halts the iteration, RemoveItem discards the item.
	Iter(func(item T) error)
	// All returns a go1.23-style iterator over the items.
	All() iter.Seq[T]
	Copy() Set[T]
	Slice() []T
	Equals(Set[T]) bool
	String() string
}

type v struct{}

var emptyValue = v{}

var (
	StopIteration = errors.New("stop iteration")
	RemoveItem    = errors.New("remove item")
)

func New[T comparable]() Set[T] {
	return make(Typed[T])
}

func From[T comparable](members ...T) Set[T] {
	s := New[T]()
	s.AddAll(members)
	return s
}

func FromArray[T comparable](membersArray []T) Set[T] {
	return From(membersArray...)
}

func Empty[T comparable]() Set[T] {
	return (Typed[T])(nil)
}

// Typed is the standard implementation of Set.
type Typed[T comparable] map[T]v

func (set Typed[T]) Len() int {
	return len(set)
}

func (set Typed[T]) Add(item T) {
	set[item] = emptyValue
}

func (set Typed[T]) AddAll(itemArray []T) {
	for _, v := range itemArray {
		set.Add(v)
	}
}

func (set Typed[T]) AddSet(other Set[T]) {
	for item := range other.All() {
		set.Add(item)
	}
}

func (set Typed[T]) Discard(item T) {
	delete(set, item)
}

func (set Typed[T]) Clear() {
	for item := range set {
		delete(set, item)
	}
}

func (set Typed[T]) Contains(item T) bool {
	_, present := set[item]
	return present
}

func (set Typed[T]) ContainsAll(other Set[T]) bool {
	result := true
	for item := range other.All() {
		if !set.Contains(item) {
			result = false
			break
		}
	}
	return result
}

func (set Typed[T]) Iter(visitor func(item T) error) {
	for item := range set {
		err := visitor(item)
		if err == StopIteration {
			break
		}
		if err == RemoveItem {
			delete(set, item)
		}
	}
}

func (set Typed[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range set {
			if !yield(item) {
				return
			}
		}
	}
}

func (set Typed[T]) Copy() Set[T] {
	cpy := New[T]()
	for item := range set {
		cpy.Add(item)
	}
	return cpy
}

func (set Typed[T]) Slice() (s []T) {
	for item := range set {
		s = append(s, item)
	}
	return
}

func (set Typed[T]) Equals(other Set[T]) bool {
	if set.Len() != other.Len() {
		return false
	}
	for item := range set {
		if !other.Contains(item) {
			return false
		}
	}
	return true
}

func (set Typed[T]) String() string {
	parts := make([]string, 0, len(set))
	for item := range set {
		parts = append(parts, fmt.Sprint(item))
	}
	return "set.Set{" + strings.Join(parts, ",") + "}"
}
