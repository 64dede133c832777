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

package compiler

import (
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netkat/fdd"
	"github.com/projectcalico/netkat/nkt"
)

// CacheMode selects the intern-table retention policy applied before a
// compile.
type CacheMode string

const (
	// CacheKeep retains the whole table.
	CacheKeep CacheMode = "keep"
	// CacheEmpty resets the table.
	CacheEmpty CacheMode = "empty"
	// CachePreserve retains entries reachable from Options.PreserveRoots.
	CachePreserve CacheMode = "preserve"
)

// OrderMode selects how the field order is fixed.
type OrderMode string

const (
	// OrderDefault uses the field declaration order.
	OrderDefault OrderMode = "default"
	// OrderStatic uses Options.StaticOrder verbatim.
	OrderStatic OrderMode = "static"
	// OrderHeuristic ranks fields by estimated branching factor.
	OrderHeuristic OrderMode = "heuristic"
)

// Adherence selects how strictly the emitters hold to what the wire
// protocol can express.
type Adherence string

const (
	// Strict rejects rules the target protocol cannot express.
	Strict Adherence = "strict"
	// Sloppy lowers unsupported constructs best-effort and logs.
	Sloppy Adherence = "sloppy"
)

// Options carries every compiler and emitter knob.  The zero value is not
// meaningful; start from DefaultOptions.
type Options struct {
	CachePrepare    CacheMode   `json:"cachePrepare"`
	FieldOrder      OrderMode   `json:"fieldOrder"`
	StaticOrder     []nkt.Field `json:"staticOrder,omitempty"`
	RemoveTailDrops bool        `json:"removeTailDrops"`
	DedupFlows      bool        `json:"dedupFlows"`
	Optimize        bool        `json:"optimize"`
	Adherence       Adherence   `json:"openflowAdherence"`
	DefaultPort     *uint32     `json:"defaultPort,omitempty"`

	// PreserveRoots names the diagrams kept live under CachePreserve.  It
	// does not round-trip through JSON; handles are process-local.
	PreserveRoots []fdd.Node `json:"-"`
}

// DefaultOptions mirrors the classic compiler defaults.
func DefaultOptions() Options {
	return Options{
		CachePrepare:    CacheEmpty,
		FieldOrder:      OrderHeuristic,
		RemoveTailDrops: false,
		DedupFlows:      true,
		Optimize:        true,
		Adherence:       Strict,
	}
}

var knownOptionKeys = map[string]bool{
	"cachePrepare":      true,
	"fieldOrder":        true,
	"staticOrder":       true,
	"removeTailDrops":   true,
	"dedupFlows":        true,
	"optimize":          true,
	"openflowAdherence": true,
	"defaultPort":       true,
}

// MarshalOptions serializes options to their JSON object form.
func MarshalOptions(o Options) ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}

// ParseOptions parses the JSON options object on top of the defaults.
// Unknown keys are an error under Strict adherence and are logged and
// ignored under Sloppy; the adherence used is the one the document itself
// selects (defaulting to Strict).
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return opts, errors.WithMessage(err, "parsing options JSON")
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, errors.WithMessage(err, "parsing options JSON")
	}
	for key := range raw {
		if knownOptionKeys[key] {
			continue
		}
		if opts.Adherence == Strict {
			return opts, errors.Errorf("unknown option %q", key)
		}
		log.WithField("key", key).Warn("Ignoring unknown option")
	}
	if err := opts.validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (o Options) validate() error {
	switch o.CachePrepare {
	case CacheKeep, CacheEmpty, CachePreserve:
	default:
		return errors.Errorf("unknown cachePrepare mode %q", o.CachePrepare)
	}
	switch o.FieldOrder {
	case OrderDefault, OrderHeuristic:
	case OrderStatic:
		if _, err := nkt.StaticOrder(o.StaticOrder...); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown fieldOrder mode %q", o.FieldOrder)
	}
	switch o.Adherence {
	case Strict, Sloppy:
	default:
		return errors.Errorf("unknown openflowAdherence mode %q", o.Adherence)
	}
	return nil
}

// order resolves the field order the options select for a policy.
func (o Options) order(p nkt.Policy) (nkt.FieldOrder, error) {
	switch o.FieldOrder {
	case OrderStatic:
		return nkt.StaticOrder(o.StaticOrder...)
	case OrderHeuristic:
		return nkt.HeuristicOrder(p), nil
	default:
		return nkt.DefaultOrder(), nil
	}
}
