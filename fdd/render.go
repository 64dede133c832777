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
	"strings"
)

// String renders the canonical textual form of a diagram:
// "(test ? trueBranch : falseBranch)" at branches, the action set at
// leaves.
func (t *Table) String(n Node) string {
	nd := t.node(n)
	if nd.leaf {
		return nd.acts.String()
	}
	return fmt.Sprintf("(%s ? %s : %s)", nd.test, t.String(nd.hi), t.String(nd.lo))
}

// Dot renders the diagram as a GraphViz digraph: branches as ellipses
// with solid true edges and dashed false edges, leaves as boxes.
func (t *Table) Dot(n Node) string {
	var b strings.Builder
	b.WriteString("digraph fdd {\nrankdir=TB;\n")
	seen := map[Node]bool{}
	var walk func(Node)
	walk = func(n Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		nd := t.node(n)
		if nd.leaf {
			fmt.Fprintf(&b, "n%d [shape=box label=%q];\n", n, nd.acts.String())
			return
		}
		fmt.Fprintf(&b, "n%d [label=%q];\n", n, nd.test.String())
		fmt.Fprintf(&b, "n%d -> n%d;\n", n, nd.hi)
		fmt.Fprintf(&b, "n%d -> n%d [style=dashed];\n", n, nd.lo)
		walk(nd.hi)
		walk(nd.lo)
	}
	walk(n)
	b.WriteString("}\n")
	return b.String()
}
