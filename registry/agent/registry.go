// Copyright (C) 2025 dawn-network
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dawn-network/node/crdt"
)

// Registry wraps a CRDT map keyed by composite agent id. Agents owned by
// this node are registered as "local"; agents mirrored from gossip are
// "remote" and must never overwrite a local entry for the same key.
type Registry struct {
	selfNodeID string
	store      *crdt.Map
	now        func() time.Time
}

// New creates an agent registry for selfNodeID.
func New(selfNodeID string) *Registry {
	return &Registry{selfNodeID: selfNodeID, store: crdt.New(selfNodeID), now: time.Now}
}

// RegisterLocalAgent inserts or updates an agent descriptor owned by this
// node, stamping it into the CRDT as this node's write.
func (r *Registry) RegisterLocalAgent(d *Descriptor) error {
	if d.NodeID != r.selfNodeID {
		return fmt.Errorf("agent: local agent %q must have node_id %q, got %q", d.LocalID, r.selfNodeID, d.NodeID)
	}
	d.AgentID = AgentID(d.NodeID, d.LocalID)
	now := r.now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return r.put(d)
}

// UnregisterLocalAgent removes localID's entry from this node's view.
// The removal is local only: the CRDT keeps no tombstone, so peers that
// already hold the entry keep it, and the next merge of their state
// re-adds it here.
func (r *Registry) UnregisterLocalAgent(localID string) {
	r.store.Remove(AgentID(r.selfNodeID, localID))
}

// RegisterRemoteAgent adopts a descriptor learned from gossip or a direct
// query. It refuses to overwrite an entry this node owns.
func (r *Registry) RegisterRemoteAgent(d *Descriptor) error {
	if d.NodeID == r.selfNodeID {
		return fmt.Errorf("agent: refusing to let remote descriptor overwrite local node's own agent %q", d.AgentID)
	}
	if d.AgentID == "" {
		d.AgentID = AgentID(d.NodeID, d.LocalID)
	}
	return r.put(d)
}

func (r *Registry) put(d *Descriptor) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("agent: marshal descriptor: %w", err)
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return fmt.Errorf("agent: normalize descriptor: %w", err)
	}
	r.store.Set(d.AgentID, asMap)
	return nil
}

func toDescriptor(value interface{}) (*Descriptor, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}
	return &d, true
}

// ByID looks up an agent by its composite id, or by a short local id
// which is resolved against this node's own node_id.
func (r *Registry) ByID(id string) (*Descriptor, bool) {
	if _, _, ok := SplitAgentID(id); !ok {
		id = AgentID(r.selfNodeID, id)
	}
	value, ok := r.store.Get(id)
	if !ok {
		return nil, false
	}
	return toDescriptor(value)
}

// All returns every known agent descriptor, sorted by agent id.
func (r *Registry) All() []*Descriptor {
	all := r.store.GetAll()
	out := make([]*Descriptor, 0, len(all))
	for _, v := range all {
		if d, ok := toDescriptor(v); ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// ByNode returns every agent hosted by nodeID.
func (r *Registry) ByNode(nodeID string) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.All() {
		if d.NodeID == nodeID {
			out = append(out, d)
		}
	}
	return out
}

// ByCapability returns every agent exposing a capability of kind, matching
// name when non-empty.
func (r *Registry) ByCapability(kind CapabilityKind, name string) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.All() {
		if d.hasCapability(kind, name) {
			out = append(out, d)
		}
	}
	return out
}

// Available returns every agent currently marked available.
func (r *Registry) Available() []*Descriptor {
	var out []*Descriptor
	for _, d := range r.All() {
		if d.Available {
			out = append(out, d)
		}
	}
	return out
}

// Stats summarizes the registry: total, local, remote and available agents.
type Stats struct {
	Total     int `json:"total"`
	Local     int `json:"local"`
	Remote    int `json:"remote"`
	Available int `json:"available"`
}

// Stats computes current registry statistics.
func (r *Registry) Stats() Stats {
	var s Stats
	for _, d := range r.All() {
		s.Total++
		if d.NodeID == r.selfNodeID {
			s.Local++
		} else {
			s.Remote++
		}
		if d.Available {
			s.Available++
		}
	}
	return s
}

// GetState returns the raw CRDT state for gossip fan-out.
func (r *Registry) GetState() map[string]crdt.Entry {
	return r.store.GetState()
}

// Merge applies a remote CRDT state received over gossip.
func (r *Registry) Merge(remote map[string]crdt.Entry) {
	r.store.Merge(remote)
}
