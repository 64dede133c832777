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

package multitable

import (
	"fmt"

	"github.com/projectcalico/netkat/nkt"
)

// FieldOutOfLayoutError is returned when the diagram tests a field the
// layout cannot place: not covered by any slab, covered twice, or
// reached after its slab's table has passed.
type FieldOutOfLayoutError struct {
	Field  nkt.Field
	Reason string
}

func (e FieldOutOfLayoutError) Error() string {
	return fmt.Sprintf("field %v does not fit the layout: %s", e.Field, e.Reason)
}
