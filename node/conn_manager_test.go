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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/peer"
	"github.com/dawn-network/node/transport"
)

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

// newTestServer spins up a node behind an httptest server, wiring its
// ConnManager as the connection handler so inbound dials are adopted and
// routed through serverNode.Route.
func newTestServer(t *testing.T, serverNode *Node, serverPeers *peer.Registry, serverIdentity *crypto.Identity) (*httptest.Server, *ConnManager) {
	t.Helper()
	conns := NewConnManager(serverIdentity, transport.DefaultOptions(), serverNode, serverPeers)
	transportServer := transport.NewServer(serverIdentity, transport.DefaultOptions(), conns.Adopt)
	ts := httptest.NewServer(transportServer.Handler())
	t.Cleanup(ts.Close)
	return ts, conns
}

func TestConnManager_CallRoutesRequestAndReturnsResponse(t *testing.T) {
	serverIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	serverPeers := peer.NewRegistry("")
	serverNode := New(serverIdentity, Config{Address: "ws://server"})

	ts, _ := newTestServer(t, serverNode, serverPeers, serverIdentity)

	clientIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	clientPeers := peer.NewRegistry("")
	clientPeers.AddPeer(serverIdentity.NodeID(), wsURL(ts), nil)
	clientNode := New(clientIdentity, Config{Address: "ws://client"})
	clientConns := NewConnManager(clientIdentity, transport.DefaultOptions(), clientNode, clientPeers)
	defer clientConns.Close()

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"node/get_info","params":{}}`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := clientConns.Call(ctx, serverIdentity.NodeID(), req)
	require.NoError(t, err)
	require.Contains(t, string(resp), serverIdentity.NodeID())
}

func TestConnManager_CallReusesConnectionForConcurrentRequests(t *testing.T) {
	serverIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	serverPeers := peer.NewRegistry("")
	serverNode := New(serverIdentity, Config{Address: "ws://server"})

	ts, _ := newTestServer(t, serverNode, serverPeers, serverIdentity)

	clientIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	clientPeers := peer.NewRegistry("")
	clientPeers.AddPeer(serverIdentity.NodeID(), wsURL(ts), nil)
	clientNode := New(clientIdentity, Config{Address: "ws://client"})
	clientConns := NewConnManager(clientIdentity, transport.DefaultOptions(), clientNode, clientPeers)
	defer clientConns.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		id := i + 1
		go func() {
			req := []byte(`{"jsonrpc":"2.0","id":` + string(rune('0'+id)) + `,"method":"node/get_info","params":{}}`)
			_, err := clientConns.Call(ctx, serverIdentity.NodeID(), req)
			results <- err
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, <-results)
	}

	clientConns.mu.Lock()
	n := len(clientConns.conns)
	clientConns.mu.Unlock()
	require.Equal(t, 1, n, "expected a single pooled connection to be reused")
}

func TestConnManager_CallUnknownPeerErrors(t *testing.T) {
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)
	peers := peer.NewRegistry("")
	n := New(identity, Config{})
	conns := NewConnManager(identity, transport.DefaultOptions(), n, peers)

	_, err = conns.Call(context.Background(), "nonexistent", []byte(`{"jsonrpc":"2.0","id":1,"method":"node/get_info"}`))
	require.Error(t, err)
}

func TestConnManager_CallNotificationDoesNotBlock(t *testing.T) {
	serverIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	serverPeers := peer.NewRegistry("")
	serverNode := New(serverIdentity, Config{Address: "ws://server"})

	ts, _ := newTestServer(t, serverNode, serverPeers, serverIdentity)

	clientIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	clientPeers := peer.NewRegistry("")
	clientPeers.AddPeer(serverIdentity.NodeID(), wsURL(ts), nil)
	clientNode := New(clientIdentity, Config{Address: "ws://client"})
	clientConns := NewConnManager(clientIdentity, transport.DefaultOptions(), clientNode, clientPeers)
	defer clientConns.Close()

	req := []byte(`{"jsonrpc":"2.0","method":"node/get_info","params":{}}`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := clientConns.Call(ctx, serverIdentity.NodeID(), req)
	require.NoError(t, err)
	require.Nil(t, resp)
}
