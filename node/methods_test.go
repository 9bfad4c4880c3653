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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/dht"
	agentregistry "github.com/dawn-network/node/registry/agent"
)

// noopQuerier never reaches a peer; only HandleFindNode/HandleFindValue/
// HandleStore (answering inbound RPCs against the local table/store) are
// exercised by these tests, not outbound iterative lookups.
type noopQuerier struct{}

func (noopQuerier) FindNode(ctx context.Context, peer dht.NodeRecord, target dht.ID) (dht.FindNodeResult, error) {
	return dht.FindNodeResult{}, nil
}
func (noopQuerier) FindValue(ctx context.Context, peer dht.NodeRecord, key string) (dht.FindValueResult, error) {
	return dht.FindValueResult{}, nil
}
func (noopQuerier) Store(ctx context.Context, peer dht.NodeRecord, key string, value []byte, ttl time.Duration) error {
	return nil
}

func newTestNodeWithDHT(t *testing.T) *Node {
	t.Helper()
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)
	self, err := dht.ParseID(identity.NodeID())
	require.NoError(t, err)
	d := dht.New(self, noopQuerier{})
	return New(identity, Config{Address: "ws://localhost:9000", DHT: d})
}

func TestNode_HandleDHTStoreThenFindValue(t *testing.T) {
	n := newTestNodeWithDHT(t)

	storeReq := []byte(`{"jsonrpc":"2.0","id":1,"method":"dht_store","params":{"key":"greeting","value":"aGVsbG8="}}`)
	resp := n.Route(context.Background(), storeReq)
	require.NotNil(t, resp)

	findReq := []byte(`{"jsonrpc":"2.0","id":2,"method":"dht_find_value","params":{"key":"greeting"}}`)
	resp = n.Route(context.Background(), findReq)

	var out struct {
		Result dhtFindValueResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.True(t, out.Result.Found)
	assert.Equal(t, "hello", string(out.Result.Value))
}

func TestNode_HandleDHTFindNodeReturnsEmptyWithNoContacts(t *testing.T) {
	n := newTestNodeWithDHT(t)
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"dht_find_node","params":{"target_id":"` + n.NodeID() + `"}}`)
	resp := n.Route(context.Background(), req)

	var out struct {
		Result dhtFindNodeResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Empty(t, out.Result.Nodes)
}

func TestNode_DHTMethodsUnregisteredWithoutDHT(t *testing.T) {
	n := newTestNode(t)
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"dht_find_node","params":{}}`)
	resp := n.Route(context.Background(), req)

	var out struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	require.NotNil(t, out.Error)
	assert.Equal(t, -32601, out.Error.Code)
}

func TestNode_HandleGossipAnnouncementInvokesCallback(t *testing.T) {
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)

	var received json.RawMessage
	n := New(identity, Config{OnGossip: func(params json.RawMessage) { received = params }})

	req := []byte(`{"jsonrpc":"2.0","method":"gossip_announcement","params":{"type":"gossip_announcement"}}`)
	resp := n.Route(context.Background(), req)

	assert.Nil(t, resp)
	require.NotNil(t, received)
}

func TestNode_HandleListAgentsReflectsRegisteredAgents(t *testing.T) {
	n := newTestNode(t)
	descriptor := &agentregistry.Descriptor{Name: "Researcher", Description: "finds things"}
	require.NoError(t, n.RegisterAgent("researcher", descriptor, &echoHandler{}))

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"node/list_agents","params":{}}`)
	resp := n.Route(context.Background(), req)

	var out struct {
		Result listAgentsResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	require.Len(t, out.Result.Agents, 1)
	assert.Equal(t, "Researcher", out.Result.Agents[0].Name)
}
