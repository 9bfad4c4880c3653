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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/crypto"
	agentregistry "github.com/dawn-network/node/registry/agent"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)
	return New(identity, Config{Address: "ws://localhost:9000"})
}

// echoHandler records the last raw request it received and replies with
// a fixed JSON-RPC result keyed to the same id.
type echoHandler struct {
	lastRaw []byte
}

func (h *echoHandler) HandleRaw(ctx context.Context, raw []byte) []byte {
	h.lastRaw = raw
	var envelope struct {
		ID interface{} `json:"id"`
	}
	_ = json.Unmarshal(raw, &envelope)
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": "ok"}
	out, _ := json.Marshal(resp)
	return out
}

func TestNode_RouteToLocalAgentRewritesMethod(t *testing.T) {
	n := newTestNode(t)
	handler := &echoHandler{}
	require.NoError(t, n.RegisterAgent("researcher", &agentregistry.Descriptor{Name: "Researcher"}, handler))

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"researcher/search","params":{"q":"go"}}`)
	resp := n.Route(context.Background(), req)

	require.NotNil(t, handler.lastRaw)
	var forwarded struct {
		Method string `json:"method"`
	}
	require.NoError(t, json.Unmarshal(handler.lastRaw, &forwarded))
	assert.Equal(t, "search", forwarded.Method)

	var out struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Equal(t, "ok", out.Result)
}

func TestNode_RouteToLocalAgentViaSelfQualifiedMethod(t *testing.T) {
	n := newTestNode(t)
	handler := &echoHandler{}
	require.NoError(t, n.RegisterAgent("researcher", &agentregistry.Descriptor{}, handler))

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"` + n.NodeID() + `:researcher/search","params":{}}`)
	resp := n.Route(context.Background(), req)
	require.NotNil(t, resp)

	var forwarded struct {
		Method string `json:"method"`
	}
	require.NoError(t, json.Unmarshal(handler.lastRaw, &forwarded))
	assert.Equal(t, "search", forwarded.Method)
}

func TestNode_RouteMissingLocalAgentReturnsMethodNotFound(t *testing.T) {
	n := newTestNode(t)
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"nobody/search","params":{}}`)
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

func TestNode_RouteMissingLocalAgentNotificationYieldsNoResponse(t *testing.T) {
	n := newTestNode(t)
	req := []byte(`{"jsonrpc":"2.0","method":"nobody/search","params":{}}`)
	resp := n.Route(context.Background(), req)
	assert.Nil(t, resp)
}

func TestNode_RouteNodeMethod(t *testing.T) {
	n := newTestNode(t)
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"node/get_info","params":{}}`)
	resp := n.Route(context.Background(), req)

	var out struct {
		Result nodeInfoResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Equal(t, n.NodeID(), out.Result.NodeID)
	assert.Equal(t, "ws://localhost:9000", out.Result.Address)
}

func TestNode_RouteUnroutableMethod(t *testing.T) {
	n := newTestNode(t)
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"just_a_word","params":{}}`)
	resp := n.Route(context.Background(), req)

	var out struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	require.NotNil(t, out.Error)
	assert.Equal(t, -32600, out.Error.Code)
}

func TestNode_RouteBatchMixesLocalAndNode(t *testing.T) {
	n := newTestNode(t)
	handler := &echoHandler{}
	require.NoError(t, n.RegisterAgent("researcher", &agentregistry.Descriptor{}, handler))

	req := []byte(`[
		{"jsonrpc":"2.0","id":1,"method":"node/get_info","params":{}},
		{"jsonrpc":"2.0","id":2,"method":"researcher/search","params":{}}
	]`)
	resp := n.Route(context.Background(), req)

	var out []json.RawMessage
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Len(t, out, 2)
}

// fakeCaller simulates an outbound peer transport for forward tests.
type fakeCaller struct {
	resp []byte
	err  error
	got  []byte
}

func (f *fakeCaller) Call(ctx context.Context, peerNodeID string, raw []byte) ([]byte, error) {
	f.got = raw
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestNode_ForwardRewritesMethodAndReturnsPeerResponse(t *testing.T) {
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)
	caller := &fakeCaller{resp: []byte(`{"jsonrpc":"2.0","id":1,"result":"from-peer"}`)}
	n := New(identity, Config{Caller: caller})

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"deadbeef:researcher/search","params":{}}`)
	resp := n.Route(context.Background(), req)
	assert.Equal(t, caller.resp, resp)

	var forwarded struct {
		Method string `json:"method"`
	}
	require.NoError(t, json.Unmarshal(caller.got, &forwarded))
	assert.Equal(t, "researcher/search", forwarded.Method)
}

func TestNode_ForwardTransportFailureBecomesJSONRPCError(t *testing.T) {
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)
	caller := &fakeCaller{err: errors.New("dial timeout")}
	n := New(identity, Config{Caller: caller})

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"deadbeef:researcher/search","params":{}}`)
	resp := n.Route(context.Background(), req)

	var out struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	require.NotNil(t, out.Error)
	assert.Equal(t, -32603, out.Error.Code)
}

func TestNode_ForwardWithoutCallerConfiguredErrors(t *testing.T) {
	n := newTestNode(t)
	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"deadbeef:researcher/search","params":{}}`)
	resp := n.Route(context.Background(), req)

	var out struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp, &out))
	require.NotNil(t, out.Error)
}

func TestNode_ForwardNotificationProducesNoResponse(t *testing.T) {
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)
	caller := &fakeCaller{resp: []byte(`{"jsonrpc":"2.0","id":null,"result":null}`)}
	n := New(identity, Config{Caller: caller})

	req := []byte(`{"jsonrpc":"2.0","method":"deadbeef:researcher/search","params":{}}`)
	resp := n.Route(context.Background(), req)
	assert.Nil(t, resp)
}

func TestNode_UnregisterAgentRemovesLocalDispatch(t *testing.T) {
	n := newTestNode(t)
	handler := &echoHandler{}
	require.NoError(t, n.RegisterAgent("researcher", &agentregistry.Descriptor{}, handler))
	n.UnregisterAgent("researcher")

	req := []byte(`{"jsonrpc":"2.0","id":1,"method":"researcher/search","params":{}}`)
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
