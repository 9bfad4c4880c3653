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

// Package node implements the P2P router: it owns every other
// component (identity, transports, peer registry, both CRDTs,
// discovery, DHT, privacy layer) and routes each inbound JSON-RPC
// message to a local node method, a local agent, or a remote peer.
package node

import "strings"

// routeKind classifies a method string per §4.4.
type routeKind int

const (
	// routeInvalid is a method string with no routable shape.
	routeInvalid routeKind = iota
	// routeNode is a node-level method (`node/<sub>` or one of the bare
	// reserved DHT/gossip method names).
	routeNode
	// routeAgent targets a local agent (no `node_id:` prefix, or one
	// that resolves to this node).
	routeAgent
	// routeForward targets a remote peer's agent.
	routeForward
)

// reservedBareMethods are node-level methods that are not prefixed with
// `node/` on the wire, per §6's external interface list.
var reservedBareMethods = map[string]bool{
	"dht_find_node":       true,
	"dht_find_value":      true,
	"dht_store":           true,
	"gossip_announcement": true,
}

// routeDecision is the outcome of parsing a method string.
type routeDecision struct {
	kind    routeKind
	nodeID  string
	agentID string
	sub     string
}

// parseMethod classifies method against the three routing modes from
// §4.4: `node/<sub>`, `<node_id>:<agent_id>/<sub>`, and bare
// `<agent_id>/<sub>`.
func parseMethod(method string) routeDecision {
	if method == "" {
		return routeDecision{kind: routeInvalid}
	}
	if strings.HasPrefix(method, "node/") {
		return routeDecision{kind: routeNode, sub: strings.TrimPrefix(method, "node/")}
	}
	if reservedBareMethods[method] {
		return routeDecision{kind: routeNode, sub: method}
	}

	idx := strings.IndexByte(method, '/')
	if idx < 0 {
		return routeDecision{kind: routeInvalid}
	}
	target, sub := method[:idx], method[idx+1:]

	if colon := strings.IndexByte(target, ':'); colon >= 0 {
		return routeDecision{kind: routeForward, nodeID: target[:colon], agentID: target[colon+1:], sub: sub}
	}
	return routeDecision{kind: routeAgent, agentID: target, sub: sub}
}
