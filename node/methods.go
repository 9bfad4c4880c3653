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

package node

import (
	"context"
	"encoding/json"

	"github.com/dawn-network/node/dht"
	"github.com/dawn-network/node/rpc"
)

// registerNodeMethods installs the `node/*` methods and the bare
// DHT/gossip method names onto the node-level dispatcher, per §4.4/§6.
func (n *Node) registerNodeMethods() {
	n.nodeDispatcher.RegisterSync("get_info", n.handleGetInfo)
	n.nodeDispatcher.RegisterSync("list_agents", n.handleListAgents)
	n.nodeDispatcher.RegisterSync("list_peers", n.handleListPeers)

	if n.dhtInstance != nil {
		n.nodeDispatcher.RegisterSync("dht_find_node", n.handleDHTFindNode)
		n.nodeDispatcher.RegisterSync("dht_find_value", n.handleDHTFindValue)
		n.nodeDispatcher.RegisterSync("dht_store", n.handleDHTStore)
	}

	n.nodeDispatcher.RegisterSync("gossip_announcement", n.handleGossipAnnouncement)
}

type nodeInfoResult struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}

func (n *Node) handleGetInfo(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return nodeInfoResult{NodeID: n.identity.NodeID(), Address: n.address}, nil
}

type agentSummary struct {
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

type listAgentsResult struct {
	Agents []agentSummary `json:"agents"`
}

func (n *Node) handleListAgents(ctx context.Context, params json.RawMessage) (interface{}, error) {
	all := n.AgentRegistry.All()
	out := make([]agentSummary, 0, len(all))
	for _, d := range all {
		out = append(out, agentSummary{AgentID: d.AgentID, Name: d.Name, Description: d.Description, Available: d.Available})
	}
	return listAgentsResult{Agents: out}, nil
}

type peerSummary struct {
	NodeID      string  `json:"node_id"`
	Address     string  `json:"address"`
	Connected   bool    `json:"connected"`
	HealthScore float64 `json:"health_score"`
}

type listPeersResult struct {
	Peers []peerSummary `json:"peers"`
}

func (n *Node) handleListPeers(ctx context.Context, params json.RawMessage) (interface{}, error) {
	peers := n.Peers.List()
	out := make([]peerSummary, 0, len(peers))
	for _, p := range peers {
		out = append(out, peerSummary{NodeID: p.NodeID, Address: p.Address, Connected: p.Connected, HealthScore: p.HealthScore})
	}
	return listPeersResult{Peers: out}, nil
}

type dhtNodeWire struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}

func toWireNodes(recs []dht.NodeRecord) []dhtNodeWire {
	out := make([]dhtNodeWire, 0, len(recs))
	for _, r := range recs {
		out = append(out, dhtNodeWire{NodeID: r.NodeID.String(), Address: r.Address})
	}
	return out
}

type dhtFindNodeParams struct {
	TargetID string `json:"target_id"`
}

type dhtFindNodeResult struct {
	Nodes []dhtNodeWire `json:"nodes"`
}

func (n *Node) handleDHTFindNode(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p dhtFindNodeParams
	if err := rpc.BindParams(params, &p); err != nil {
		return nil, err
	}
	target, err := dht.ParseID(p.TargetID)
	if err != nil {
		return nil, rpc.NewError(rpc.CodeInvalidParams, "Invalid params", err.Error())
	}
	return dhtFindNodeResult{Nodes: toWireNodes(n.dhtInstance.HandleFindNode(target))}, nil
}

type dhtFindValueParams struct {
	Key string `json:"key"`
}

type dhtFindValueResult struct {
	Value []byte        `json:"value,omitempty"`
	Found bool          `json:"found"`
	Nodes []dhtNodeWire `json:"nodes,omitempty"`
}

func (n *Node) handleDHTFindValue(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p dhtFindValueParams
	if err := rpc.BindParams(params, &p); err != nil {
		return nil, err
	}
	res := n.dhtInstance.HandleFindValue(p.Key)
	return dhtFindValueResult{Value: res.Value, Found: res.Found, Nodes: toWireNodes(res.Nodes)}, nil
}

type dhtStoreParams struct {
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	TTLSecond int    `json:"ttl"`
}

func (n *Node) handleDHTStore(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p dhtStoreParams
	if err := rpc.BindParams(params, &p); err != nil {
		return nil, err
	}
	ttl := dht.DefaultTTL
	if p.TTLSecond > 0 {
		ttl = secondsToDuration(p.TTLSecond)
	}
	n.dhtInstance.HandleStore(p.Key, p.Value, ttl)
	return map[string]bool{"ok": true}, nil
}

// handleGossipAnnouncement is delivered as a notification (no reply);
// the dispatcher's notification handling already suppresses a response
// for requests with no id, so this handler's return value is discarded
// whenever it matters.
func (n *Node) handleGossipAnnouncement(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if n.onGossip != nil {
		n.onGossip(params)
	}
	return nil, nil
}
