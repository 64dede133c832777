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

package fdd

import (
	"fmt"

	"github.com/projectcalico/netkat/actions"
)

// NonPredicateNegationError is returned by Negate when the diagram carries
// a leaf that modifies packets; negation is only defined on predicates.
type NonPredicateNegationError struct {
	Actions actions.Set
}

func (e NonPredicateNegationError) Error() string {
	return fmt.Sprintf("cannot negate a non-predicate diagram (leaf %v)", e.Actions)
}
