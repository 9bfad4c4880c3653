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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/discovery"
	"github.com/dawn-network/node/peer"
	"github.com/dawn-network/node/transport"
)

func TestAddrCaller_ListPeersDecodesRemotePeerList(t *testing.T) {
	serverIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	serverPeers := peer.NewRegistry("")
	remotePeerID, err := crypto.NewIdentity()
	require.NoError(t, err)
	serverPeers.AddPeer(remotePeerID.NodeID(), "ws://remote:1", nil)

	serverNode := New(serverIdentity, Config{Address: "ws://server", Peers: serverPeers})
	ts, _ := newTestServer(t, serverNode, serverPeers, serverIdentity)

	clientIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	clientPeers := peer.NewRegistry("")
	clientNode := New(clientIdentity, Config{Address: "ws://client"})
	clientConns := NewConnManager(clientIdentity, transport.DefaultOptions(), clientNode, clientPeers)
	defer clientConns.Close()

	caller := newAddrCaller(clientConns)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peers, err := caller.ListPeers(ctx, wsURL(ts))
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, remotePeerID.NodeID(), peers[0].NodeID)
	require.Equal(t, "ws://remote:1", peers[0].Address)
}

func TestGossipAnnouncer_SendGossipDeliversAnnouncement(t *testing.T) {
	serverIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	serverPeers := peer.NewRegistry("")

	received := make(chan struct{}, 1)
	serverNode := New(serverIdentity, Config{
		Address: "ws://server",
		Peers:   serverPeers,
		OnGossip: func(raw json.RawMessage) {
			select {
			case received <- struct{}{}:
			default:
			}
		},
	})
	ts, _ := newTestServer(t, serverNode, serverPeers, serverIdentity)

	clientIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	clientPeers := peer.NewRegistry("")
	clientNode := New(clientIdentity, Config{Address: "ws://client"})
	clientConns := NewConnManager(clientIdentity, transport.DefaultOptions(), clientNode, clientPeers)
	defer clientConns.Close()

	announcer := newGossipAnnouncer(clientConns)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ann := discovery.Announcement{Type: "gossip_announcement", Timestamp: 1}
	require.NoError(t, announcer.SendGossip(ctx, wsURL(ts), ann))

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("server never observed the gossip announcement")
	}
}
