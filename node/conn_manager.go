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

	"github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/peer"
	"github.com/dawn-network/node/transport"
)

// ConnManager is the PeerCaller implementation that backs outbound
// forwarding and DHT RPCs: it maintains one dialed transport.Conn per
// remote node id, multiplexing concurrent Call invocations over it by
// matching JSON-RPC response ids, and routes every inbound frame that
// is not a response back into the owning Node's Route method.
type ConnManager struct {
	identity *crypto.Identity
	opts     transport.Options
	node     *Node
	peers    *peer.Registry

	mu    sync.Mutex
	conns map[string]*managedConn
}

type managedConn struct {
	conn *transport.Conn

	mu      sync.Mutex
	pending map[interface{}]chan []byte
}

// NewConnManager creates a connection manager that dials peers found in
// peers by address and delivers every non-response inbound frame to
// node.Route.
func NewConnManager(identity *crypto.Identity, opts transport.Options, node *Node, peers *peer.Registry) *ConnManager {
	return &ConnManager{
		identity: identity,
		opts:     opts,
		node:     node,
		peers:    peers,
		conns:    make(map[string]*managedConn),
	}
}

// Call implements PeerCaller: it dials (or reuses) a connection to
// peerNodeID, sends raw, and — if raw encodes a request with a non-null
// id — waits for the matching response.
func (m *ConnManager) Call(ctx context.Context, peerNodeID string, raw []byte) ([]byte, error) {
	mc, err := m.connFor(peerNodeID)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		ID interface{} `json:"id"`
	}
	_ = json.Unmarshal(raw, &envelope)

	isNotification := envelope.ID == nil
	var wait chan []byte
	if !isNotification {
		wait = make(chan []byte, 1)
		mc.mu.Lock()
		mc.pending[fmt.Sprint(envelope.ID)] = wait
		mc.mu.Unlock()
	}

	if err := mc.conn.Send(raw); err != nil {
		if !isNotification {
			mc.mu.Lock()
			delete(mc.pending, fmt.Sprint(envelope.ID))
			mc.mu.Unlock()
		}
		m.peers.RecordFailure(peerNodeID)
		return nil, fmt.Errorf("node: send to %s: %w", peerNodeID, err)
	}
	m.peers.RecordSuccess(peerNodeID)

	if isNotification {
		return nil, nil
	}

	select {
	case resp := <-wait:
		return resp, nil
	case <-ctx.Done():
		mc.mu.Lock()
		delete(mc.pending, fmt.Sprint(envelope.ID))
		mc.mu.Unlock()
		return nil, ctx.Err()
	}
}

// connFor returns the cached connection to peerNodeID, dialing a fresh
// one (looked up by address in the peer registry) if none exists yet.
// peerNodeID may name a real node id or a discovery placeholder
// ("bootstrap:<addr>"/"gossip:<addr>") assigned before the remote's
// identity is known; once the handshake completes, the connection is
// additionally keyed and tracked under the node id it actually reveals.
func (m *ConnManager) connFor(peerNodeID string) (*managedConn, error) {
	m.mu.Lock()
	mc, ok := m.conns[peerNodeID]
	m.mu.Unlock()
	if ok {
		return mc, nil
	}

	p, ok := m.peers.Get(peerNodeID)
	if !ok {
		return nil, fmt.Errorf("node: no known address for peer %s", peerNodeID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.HandshakeTimeout)
	defer cancel()
	conn, err := transport.Dial(ctx, p.Address, m.identity, m.opts)
	if err != nil {
		m.peers.RecordFailure(peerNodeID)
		return nil, fmt.Errorf("node: dial %s: %w", p.Address, err)
	}

	realID := conn.RemoteNodeID()
	if realID == "" {
		realID = peerNodeID
	}
	if realID != peerNodeID {
		m.peers.AddPeer(realID, p.Address, nil)
	}
	m.peers.SetConnected(realID, true)

	mc = &managedConn{conn: conn, pending: make(map[interface{}]chan []byte)}
	m.mu.Lock()
	m.conns[peerNodeID] = mc
	if realID != peerNodeID {
		m.conns[realID] = mc
	}
	m.mu.Unlock()

	go m.readLoop([]string{peerNodeID, realID}, mc)
	return mc, nil
}

// Adopt registers an already-established inbound connection (the
// responder side of a handshake, accepted by transport.Server) under
// its handshaken remote node id, so later outbound Calls reuse it
// instead of dialing a second connection to the same peer.
func (m *ConnManager) Adopt(conn *transport.Conn) {
	peerNodeID := conn.RemoteNodeID()
	mc := &managedConn{conn: conn, pending: make(map[interface{}]chan []byte)}

	m.mu.Lock()
	if peerNodeID != "" {
		m.conns[peerNodeID] = mc
	}
	m.mu.Unlock()

	if peerNodeID != "" {
		m.peers.SetConnected(peerNodeID, true)
	}
	go m.readLoop([]string{peerNodeID}, mc)
}

// readLoop pumps one connection's inbound frames: responses matching a
// pending Call are delivered to the waiting caller, everything else
// (requests, notifications) is routed through the node. keys lists every
// id this connection is filed under in m.conns (a placeholder id, the
// handshaken real id, or both), all cleaned up together on disconnect.
func (m *ConnManager) readLoop(keys []string, mc *managedConn) {
	defer func() {
		m.mu.Lock()
		for _, key := range keys {
			if key != "" {
				delete(m.conns, key)
			}
		}
		m.mu.Unlock()
		for _, key := range keys {
			if key != "" {
				m.peers.SetConnected(key, false)
			}
		}
		_ = mc.conn.Close()
	}()

	for {
		raw, err := mc.conn.Receive()
		if err != nil {
			return
		}

		var envelope struct {
			ID     interface{}     `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && (envelope.Result != nil || envelope.Error != nil) {
			key := fmt.Sprint(envelope.ID)
			mc.mu.Lock()
			wait, ok := mc.pending[key]
			if ok {
				delete(mc.pending, key)
			}
			mc.mu.Unlock()
			if ok {
				wait <- raw
				continue
			}
		}

		resp := m.node.Route(context.Background(), raw)
		if resp != nil {
			_ = mc.conn.Send(resp)
		}
	}
}

// Close tears down every managed connection.
func (m *ConnManager) Close() {
	m.mu.Lock()
	conns := make([]*managedConn, 0, len(m.conns))
	for _, mc := range m.conns {
		conns = append(conns, mc)
	}
	m.conns = make(map[string]*managedConn)
	m.mu.Unlock()

	for _, mc := range conns {
		_ = mc.conn.Close()
	}
}
