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
	"time"

	"github.com/dawn-network/node/dht"
	"github.com/dawn-network/node/rpc"
)

// dhtQuerier adapts a PeerCaller into a dht.Querier by encoding each of
// the three DHT operations as a node-level JSON-RPC call and decoding
// the peer's response back into the shape dht.DHT expects.
type dhtQuerier struct {
	caller PeerCaller
}

func newDHTQuerier(caller PeerCaller) *dhtQuerier {
	return &dhtQuerier{caller: caller}
}

func (q *dhtQuerier) call(ctx context.Context, peer dht.NodeRecord, method string, params interface{}) (json.RawMessage, error) {
	encodedParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req := rpc.Request{JSONRPC: "2.0", Method: method, Params: encodedParams, ID: 1}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	respRaw, err := q.caller.Call(ctx, peer.NodeID.String(), raw)
	if err != nil {
		return nil, fmt.Errorf("dht query %s to %s: %w", method, peer.NodeID, err)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.Error      `json:"error"`
	}
	if err := json.Unmarshal(respRaw, &resp); err != nil {
		return nil, fmt.Errorf("dht query %s: malformed response: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("dht query %s: peer returned %d: %s", method, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

func (q *dhtQuerier) FindNode(ctx context.Context, peer dht.NodeRecord, target dht.ID) (dht.FindNodeResult, error) {
	result, err := q.call(ctx, peer, "dht_find_node", dhtFindNodeParams{TargetID: target.String()})
	if err != nil {
		return dht.FindNodeResult{}, err
	}
	var wire dhtFindNodeResult
	if err := json.Unmarshal(result, &wire); err != nil {
		return dht.FindNodeResult{}, err
	}
	return dht.FindNodeResult{Nodes: fromWireNodes(wire.Nodes)}, nil
}

func (q *dhtQuerier) FindValue(ctx context.Context, peer dht.NodeRecord, key string) (dht.FindValueResult, error) {
	result, err := q.call(ctx, peer, "dht_find_value", dhtFindValueParams{Key: key})
	if err != nil {
		return dht.FindValueResult{}, err
	}
	var wire dhtFindValueResult
	if err := json.Unmarshal(result, &wire); err != nil {
		return dht.FindValueResult{}, err
	}
	return dht.FindValueResult{Value: wire.Value, Found: wire.Found, Nodes: fromWireNodes(wire.Nodes)}, nil
}

func (q *dhtQuerier) Store(ctx context.Context, peer dht.NodeRecord, key string, value []byte, ttl time.Duration) error {
	_, err := q.call(ctx, peer, "dht_store", dhtStoreParams{Key: key, Value: value, TTLSecond: int(ttl.Seconds())})
	return err
}

func fromWireNodes(wire []dhtNodeWire) []dht.NodeRecord {
	out := make([]dht.NodeRecord, 0, len(wire))
	for _, w := range wire {
		id, err := dht.ParseID(w.NodeID)
		if err != nil {
			continue
		}
		out = append(out, dht.NodeRecord{NodeID: id, Address: w.Address})
	}
	return out
}
