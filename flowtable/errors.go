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

package flowtable

import (
	"fmt"

	"github.com/projectcalico/netkat/actions"
)

// IndeterminatePortError is returned when an action reaches emission with
// no output location and no default port was configured.
type IndeterminatePortError struct {
	Action  actions.Action
	Pattern Pattern
}

func (e IndeterminatePortError) Error() string {
	return fmt.Sprintf("action %v under pattern %v has no output port and no default was provided",
		e.Action, e.Pattern)
}

// UnsupportedActionError is returned under strict adherence when a rule
// cannot be expressed on the wire protocol.
type UnsupportedActionError struct {
	Reason string
}

func (e UnsupportedActionError) Error() string {
	return "unsupported on the wire protocol: " + e.Reason
}
