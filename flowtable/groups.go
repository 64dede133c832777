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
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netkat/actions"
	"github.com/projectcalico/netkat/idalloc"
	"github.com/projectcalico/netkat/nkt"
)

// GroupType distinguishes fan-out groups from fast-failover groups.
type GroupType string

const (
	GroupAll      GroupType = "all"
	GroupFastFail GroupType = "ff"
)

// Bucket is one branch of a group: the field modifications to apply and
// the output location.  WatchPort is set for fast-failover buckets.
type Bucket struct {
	Mods      []nkt.Test
	Output    nkt.Value
	WatchPort *uint32
}

func (b Bucket) key() string {
	parts := make([]string, 0, len(b.Mods)+1)
	for _, m := range b.Mods {
		parts = append(parts, m.String())
	}
	sort.Strings(parts)
	parts = append(parts, "out="+b.Output.String())
	return strings.Join(parts, ";")
}

// Group is one group-table entry.
type Group struct {
	ID      uint32
	Type    GroupType
	Buckets []Bucket
}

// GroupTable accumulates the groups referenced by emitted rules,
// deduplicating structurally identical ones.
type GroupTable struct {
	alloc  *idalloc.IndexAllocator
	byKey  map[string]uint32
	groups []Group
}

// NewGroupTable creates an empty group table.  Group id 0 is reserved by
// the wire protocol, so allocation starts at 1.
func NewGroupTable() *GroupTable {
	return &GroupTable{
		alloc: idalloc.NewIndexAllocator(idalloc.IndexRange{Min: 1, Max: 1 << 16}),
		byKey: map[string]uint32{},
	}
}

// AddGroup interns a group, returning the id of an existing structurally
// equal group when there is one.
func (g *GroupTable) AddGroup(groupType GroupType, buckets []Bucket) (uint32, error) {
	keys := make([]string, len(buckets))
	for i, b := range buckets {
		keys[i] = b.key()
	}
	sort.Strings(keys)
	key := string(groupType) + "|" + strings.Join(keys, "|")
	if id, ok := g.byKey[key]; ok {
		return id, nil
	}
	idx, err := g.alloc.GrabIndex()
	if err != nil {
		return 0, err
	}
	id := uint32(idx)
	g.byKey[key] = id
	g.groups = append(g.groups, Group{ID: id, Type: groupType, Buckets: buckets})
	log.WithFields(log.Fields{
		"groupId": id,
		"type":    groupType,
		"buckets": len(buckets),
	}).Debug("Interned group-table entry")
	return id, nil
}

// Groups returns the accumulated entries in allocation order.
func (g *GroupTable) Groups() []Group {
	return g.groups
}

// bucketsForAction flattens one action into group buckets: one bucket, or
// one per fallback port for a fast-failover output.
func bucketsForAction(a actions.Action) []Bucket {
	var mods []nkt.Test
	for _, f := range a.Fields() {
		if f == nkt.Location {
			continue
		}
		v, _ := a.Get(f)
		mods = append(mods, nkt.Test{Field: f, Value: v})
	}
	out, ok := a.Get(nkt.Location)
	if !ok {
		// Identity bucket: forward via the ingress port.
		return []Bucket{{Mods: mods, Output: nkt.InPortValue()}}
	}
	if out.Kind == nkt.ValueFastFail {
		// One bucket per fallback port, watching that port.
		ports := out.FastFailPorts()
		buckets := make([]Bucket, 0, len(ports))
		for _, port := range ports {
			p := port
			buckets = append(buckets, Bucket{
				Mods:      mods,
				Output:    nkt.ConstValue(uint64(port)),
				WatchPort: &p,
			})
		}
		return buckets
	}
	return []Bucket{{Mods: mods, Output: out}}
}
