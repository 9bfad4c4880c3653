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
	"fmt"
	"sync"
	"time"

	"github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/dht"
	"github.com/dawn-network/node/internal/metrics"
	agentregistry "github.com/dawn-network/node/registry/agent"
	"github.com/dawn-network/node/registry/task"
	"github.com/dawn-network/node/rpc"

	"github.com/dawn-network/node/peer"
)

// DefaultRPCTimeout is the outbound-forward timeout per §5.
const DefaultRPCTimeout = 30 * time.Second

// AgentHandler serves an individual local agent's JSON-RPC sub-methods.
// *rpc.Dispatcher satisfies this interface directly: each local agent is
// expected to expose its MCP tool/resource/prompt surface as its own
// Dispatcher, keyed by the `<sub>` portion of the routed method.
type AgentHandler interface {
	HandleRaw(ctx context.Context, raw []byte) []byte
}

// PeerCaller forwards a raw JSON-RPC request to a remote peer (by node
// id) and returns its raw response bytes. The router supplies the
// concrete implementation, wiring it to a transport.Conn.
type PeerCaller interface {
	Call(ctx context.Context, peerNodeID string, raw []byte) ([]byte, error)
}

// Node owns the routing state for the lifetime of this process:
// identity, peer registry, both CRDT registries and (optionally) the DHT.
// The transport, discovery and privacy layer belong to Server.
// Subsystems hold back-references, never ownership.
type Node struct {
	identity   *crypto.Identity
	address    string
	rpcTimeout time.Duration

	nodeDispatcher *rpc.Dispatcher

	agentsMu sync.RWMutex
	agents   map[string]AgentHandler

	AgentRegistry *agentregistry.Registry
	TaskManager   *task.Manager
	Peers         *peer.Registry

	caller      PeerCaller
	dhtInstance *dht.DHT

	// onGossip, if set, receives the raw params of every inbound
	// gossip_announcement notification. The router only decodes as far
	// as routing requires; the discovery package owns the Announcement
	// shape and merge logic.
	onGossip func(params json.RawMessage)
}

// Config configures a new Node.
type Config struct {
	Address    string
	RPCTimeout time.Duration
	Peers      *peer.Registry
	Caller     PeerCaller

	// DHT is optional; when nil, dht_find_node/dht_find_value/dht_store
	// are left unregistered and forwarding those methods in fails with
	// "method not found" like any other unrecognized node method.
	DHT      *dht.DHT
	OnGossip func(params json.RawMessage)
}

// New creates a Node rooted at identity, with empty agent/task
// registries and an empty local-agent table.
func New(identity *crypto.Identity, cfg Config) *Node {
	timeout := cfg.RPCTimeout
	if timeout <= 0 {
		timeout = DefaultRPCTimeout
	}
	peers := cfg.Peers
	if peers == nil {
		peers = peer.NewRegistry("")
	}

	n := &Node{
		identity:      identity,
		address:       cfg.Address,
		rpcTimeout:    timeout,
		agents:        make(map[string]AgentHandler),
		AgentRegistry: agentregistry.New(identity.NodeID()),
		TaskManager:   task.NewManager(identity.NodeID()),
		Peers:         peers,
		caller:        cfg.Caller,
		dhtInstance:   cfg.DHT,
		onGossip:      cfg.OnGossip,
	}
	n.nodeDispatcher = rpc.NewDispatcher()
	n.registerNodeMethods()
	return n
}

// SetDHT attaches a DHT instance after construction and registers its
// three RPC methods. Used when the querier wired into the DHT itself
// depends on this Node (e.g. a ConnManager), so the DHT cannot exist
// before the Node does.
func (n *Node) SetDHT(d *dht.DHT) {
	n.dhtInstance = d
	n.nodeDispatcher.RegisterSync("dht_find_node", n.handleDHTFindNode)
	n.nodeDispatcher.RegisterSync("dht_find_value", n.handleDHTFindValue)
	n.nodeDispatcher.RegisterSync("dht_store", n.handleDHTStore)
}

// NodeID returns this node's hex-encoded Ed25519 public key.
func (n *Node) NodeID() string {
	return n.identity.NodeID()
}

// RegisterAgent exposes a local agent under localID, recording its
// descriptor in the agent CRDT and its handler in the local dispatch
// table. descriptor.LocalID and descriptor.NodeID are overwritten with
// localID and this node's id.
func (n *Node) RegisterAgent(localID string, descriptor *agentregistry.Descriptor, handler AgentHandler) error {
	descriptor.LocalID = localID
	descriptor.NodeID = n.identity.NodeID()
	if err := n.AgentRegistry.RegisterLocalAgent(descriptor); err != nil {
		return err
	}
	n.agentsMu.Lock()
	n.agents[localID] = handler
	n.agentsMu.Unlock()
	return nil
}

// UnregisterAgent removes a local agent from both the dispatch table and
// the agent CRDT.
func (n *Node) UnregisterAgent(localID string) {
	n.agentsMu.Lock()
	delete(n.agents, localID)
	n.agentsMu.Unlock()
	n.AgentRegistry.UnregisterLocalAgent(localID)
}

func (n *Node) localAgent(localID string) (AgentHandler, bool) {
	n.agentsMu.RLock()
	defer n.agentsMu.RUnlock()
	h, ok := n.agents[localID]
	return h, ok
}

// Route is the single entry point a transport's read loop calls with
// one inbound frame's plaintext JSON-RPC bytes. It classifies the
// message's method and dispatches locally, to a local agent, or
// forwards it to the peer named by a `<node_id>:` prefix.
func (n *Node) Route(ctx context.Context, raw []byte) []byte {
	start := time.Now()
	metrics.MessageSize.Observe(float64(len(raw)))
	defer func() { metrics.MessageProcessingDuration.Observe(time.Since(start).Seconds()) }()

	if firstNonSpace(raw) == '[' {
		return n.routeBatch(ctx, raw)
	}
	return n.routeSingle(ctx, raw)
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return c
		}
	}
	return 0
}

func (n *Node) routeBatch(ctx context.Context, raw []byte) []byte {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return mustMarshal(rpc.NewErrorResponse(nil, rpc.NewError(rpc.CodeParseError, "Parse error", nil)))
	}
	if len(items) == 0 {
		return mustMarshal(rpc.NewErrorResponse(nil, rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request", "empty batch")))
	}

	var responses []json.RawMessage
	for _, item := range items {
		if resp := n.routeSingle(ctx, item); resp != nil {
			responses = append(responses, resp)
		}
	}
	if len(responses) == 0 {
		return nil
	}
	return mustMarshal(responses)
}

// envelopePeek extracts just enough of a JSON-RPC request to route it,
// without fully validating it — full validation happens in whichever
// rpc.Dispatcher ultimately handles the call.
type envelopePeek struct {
	Method string          `json:"method"`
	ID     json.RawMessage `json:"id"`
}

func (n *Node) routeSingle(ctx context.Context, raw json.RawMessage) []byte {
	var peek envelopePeek
	if err := json.Unmarshal(raw, &peek); err != nil {
		return mustMarshal(rpc.NewErrorResponse(nil, rpc.NewError(rpc.CodeParseError, "Parse error", err.Error())))
	}

	decision := parseMethod(peek.Method)
	switch decision.kind {
	case routeNode:
		rewritten, err := rewriteMethod(raw, decision.sub)
		if err != nil {
			return mustMarshal(rpc.NewErrorResponse(idFromRaw(peek.ID), rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request", err.Error())))
		}
		resp := n.nodeDispatcher.HandleRaw(ctx, rewritten)
		metrics.MessagesProcessed.WithLabelValues("node", routeStatus(resp)).Inc()
		return resp

	case routeAgent:
		resp := n.dispatchLocalAgent(ctx, decision.agentID, decision.sub, raw, peek.ID)
		metrics.MessagesProcessed.WithLabelValues("agent", routeStatus(resp)).Inc()
		return resp

	case routeForward:
		if decision.nodeID == n.identity.NodeID() {
			resp := n.dispatchLocalAgent(ctx, decision.agentID, decision.sub, raw, peek.ID)
			metrics.MessagesProcessed.WithLabelValues("agent", routeStatus(resp)).Inc()
			return resp
		}
		resp := n.forward(ctx, decision, raw, peek.ID)
		metrics.MessagesProcessed.WithLabelValues("forward", routeStatus(resp)).Inc()
		return resp

	default:
		metrics.MessagesProcessed.WithLabelValues("node", "failure").Inc()
		return mustMarshal(rpc.NewErrorResponse(idFromRaw(peek.ID), rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request", "unroutable method")))
	}
}

// routeStatus classifies a response as success or failure for metrics
// purposes by sniffing for a top-level "error" field.
func routeStatus(resp []byte) string {
	if resp == nil {
		return "success"
	}
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(resp, &probe); err != nil {
		return "success"
	}
	if probe.Error != nil {
		return "failure"
	}
	return "success"
}

func (n *Node) dispatchLocalAgent(ctx context.Context, agentID, sub string, raw json.RawMessage, rawID json.RawMessage) []byte {
	handler, ok := n.localAgent(agentID)
	if !ok {
		if rawID == nil || string(rawID) == "null" {
			return nil
		}
		return mustMarshal(rpc.NewErrorResponse(idFromRaw(rawID), rpc.NewError(rpc.CodeMethodNotFound, "Method not found", fmt.Sprintf("no local agent %q", agentID))))
	}
	rewritten, err := rewriteMethod(raw, sub)
	if err != nil {
		return mustMarshal(rpc.NewErrorResponse(idFromRaw(rawID), rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request", err.Error())))
	}
	return handler.HandleRaw(ctx, rewritten)
}

// rewriteMethod replaces the "method" field of a JSON-RPC request object
// with newMethod, leaving every other field untouched.
func rewriteMethod(raw json.RawMessage, newMethod string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(newMethod)
	if err != nil {
		return nil, err
	}
	fields["method"] = encoded
	return json.Marshal(fields)
}

func idFromRaw(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	_ = json.Unmarshal(raw, &v)
	return v
}

func mustMarshal(v interface{}) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// forward rewrites the method to "<agent_id>/<sub>" and sends it to the
// remote peer named by decision.nodeID, bounded by n.rpcTimeout. Per
// §4.4/§5, transport failures and timeouts never propagate to the
// caller as raw exceptions — they become ordinary JSON-RPC error
// responses addressed to the original request id.
func (n *Node) forward(ctx context.Context, decision routeDecision, raw json.RawMessage, rawID json.RawMessage) []byte {
	if n.caller == nil {
		return n.forwardError(rawID, "node has no outbound peer transport configured")
	}

	rewritten, err := rewriteMethod(raw, decision.agentID+"/"+decision.sub)
	if err != nil {
		return mustMarshal(rpc.NewErrorResponse(idFromRaw(rawID), rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request", err.Error())))
	}

	callCtx, cancel := context.WithTimeout(ctx, n.rpcTimeout)
	defer cancel()

	resp, err := n.caller.Call(callCtx, decision.nodeID, rewritten)
	if err != nil {
		return n.forwardError(rawID, err.Error())
	}

	isNotification := rawID == nil || string(rawID) == "null"
	if isNotification {
		return nil
	}
	return resp
}

func (n *Node) forwardError(rawID json.RawMessage, detail string) []byte {
	if rawID == nil || string(rawID) == "null" {
		return nil
	}
	return mustMarshal(rpc.NewErrorResponse(idFromRaw(rawID), rpc.NewError(rpc.CodeInternalError, "Internal error", detail)))
}
