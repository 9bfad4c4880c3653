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

package dht

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNetwork wires a handful of in-process DHT instances together so
// iterative lookups can be exercised without real transports.
type fakeNetwork struct {
	mu    sync.Mutex
	nodes map[ID]*DHT
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{nodes: make(map[ID]*DHT)}
}

func (n *fakeNetwork) add(id ID, d *DHT) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[id] = d
}

func (n *fakeNetwork) FindNode(ctx context.Context, peer NodeRecord, target ID) (FindNodeResult, error) {
	n.mu.Lock()
	d := n.nodes[peer.NodeID]
	n.mu.Unlock()
	return FindNodeResult{Nodes: d.HandleFindNode(target)}, nil
}

func (n *fakeNetwork) FindValue(ctx context.Context, peer NodeRecord, key string) (FindValueResult, error) {
	n.mu.Lock()
	d := n.nodes[peer.NodeID]
	n.mu.Unlock()
	return d.HandleFindValue(key), nil
}

func (n *fakeNetwork) Store(ctx context.Context, peer NodeRecord, key string, value []byte, ttl time.Duration) error {
	n.mu.Lock()
	d := n.nodes[peer.NodeID]
	n.mu.Unlock()
	d.HandleStore(key, value, ttl)
	return nil
}

func idFromByte(b byte) ID {
	var id ID
	id[len(id)-1] = b
	return id
}

func TestDHT_BucketIndexZeroForIdenticalID(t *testing.T) {
	a := idFromByte(1)
	assert.Equal(t, 0, a.bucketIndex(a))
}

func TestDHT_AddNodeAndClosest(t *testing.T) {
	self := idFromByte(0)
	table := NewRoutingTable(self)
	table.AddNode(NodeRecord{NodeID: idFromByte(1), Address: "a"})
	table.AddNode(NodeRecord{NodeID: idFromByte(2), Address: "b"})

	closest := table.Closest(idFromByte(1), 1)
	require.Len(t, closest, 1)
	assert.Equal(t, idFromByte(1), closest[0].NodeID)
}

func TestDHT_FindNodeConverges(t *testing.T) {
	net := newFakeNetwork()

	selfID := idFromByte(0)
	dhtSelf := New(selfID, net)
	net.add(selfID, dhtSelf)

	var ids []ID
	for i := byte(1); i <= 5; i++ {
		id := idFromByte(i)
		d := New(id, net)
		net.add(id, d)
		ids = append(ids, id)
	}

	// Wire every node's routing table to know about its neighbors so the
	// iterative lookup has somewhere to go.
	for _, id := range ids {
		dhtSelf.AddNode(NodeRecord{NodeID: id, Address: "addr"})
		for _, other := range ids {
			if other != id {
				net.nodes[id].AddNode(NodeRecord{NodeID: other, Address: "addr"})
			}
		}
	}

	target := idFromByte(3)
	found := dhtSelf.FindNode(context.Background(), target)
	require.NotEmpty(t, found)
	assert.Equal(t, target, found[0].NodeID)
}

func TestDHT_StoreAndFindValue(t *testing.T) {
	net := newFakeNetwork()

	selfID := idFromByte(0)
	dhtSelf := New(selfID, net)
	net.add(selfID, dhtSelf)

	peerID := idFromByte(1)
	peer := New(peerID, net)
	net.add(peerID, peer)

	dhtSelf.AddNode(NodeRecord{NodeID: peerID, Address: "addr"})
	peer.AddNode(NodeRecord{NodeID: selfID, Address: "addr"})

	ok := dhtSelf.Store(context.Background(), "k1", []byte("v1"), time.Hour)
	assert.True(t, ok)

	value, found := dhtSelf.FindValue(context.Background(), "k1")
	require.True(t, found)
	assert.Equal(t, "v1", string(value))
}

func TestDHT_ValueExpiryIsLazy(t *testing.T) {
	d := New(idFromByte(0), newFakeNetwork())
	d.local.now = func() time.Time { return time.Unix(0, 0) }
	d.local.put("k1", []byte("v1"), time.Second)

	d.local.now = func() time.Time { return time.Unix(100, 0) }
	_, found := d.FindValue(context.Background(), "k1")
	assert.False(t, found)
}
