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

// Package agent is the distributed agent registry (C6): a CRDT map of
// agent descriptors keyed by "<node_id>:<local_agent_id>", replicated
// between peers via gossip.
package agent

import (
	"fmt"
	"strings"
	"time"
)

// Capability is one MCP tool/resource/prompt record mirrored from an
// agent's descriptor, best-effort and not authoritative.
type Capability struct {
	Name   string                 `json:"name"`
	URI    string                 `json:"uri,omitempty"`
	Schema map[string]interface{} `json:"schema,omitempty"`
}

// CapabilityKind selects which of an agent's three capability arrays a
// ByCapability query searches.
type CapabilityKind string

const (
	KindTool     CapabilityKind = "tool"
	KindResource CapabilityKind = "resource"
	KindPrompt   CapabilityKind = "prompt"
)

// Descriptor is one agent's full record as stored in the CRDT map.
type Descriptor struct {
	AgentID     string `json:"agent_id"`
	NodeID      string `json:"node_id"`
	LocalID     string `json:"local_id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Tools     []Capability `json:"tools"`
	Resources []Capability `json:"resources"`
	Prompts   []Capability `json:"prompts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Available   bool    `json:"available"`
	HealthScore float64 `json:"health_score"`
}

// AgentID builds the "<node_id>:<local_agent_id>" composite key.
func AgentID(nodeID, localID string) string {
	return nodeID + ":" + localID
}

// SplitAgentID splits a composite agent id into its node and local parts.
// It returns ok=false if id has no ":" separator.
func SplitAgentID(id string) (nodeID, localID string, ok bool) {
	i := strings.IndexByte(id, ':')
	if i < 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

func capabilitiesOf(d *Descriptor, kind CapabilityKind) []Capability {
	switch kind {
	case KindTool:
		return d.Tools
	case KindResource:
		return d.Resources
	case KindPrompt:
		return d.Prompts
	default:
		return nil
	}
}

func (d *Descriptor) hasCapability(kind CapabilityKind, name string) bool {
	for _, c := range capabilitiesOf(d, kind) {
		if name == "" || c.Name == name {
			return true
		}
	}
	return false
}

func invalidAgentID(id string) error {
	return fmt.Errorf("agent: invalid agent id %q, want \"<node_id>:<local_id>\"", id)
}
