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

	"github.com/dawn-network/node/discovery"
	"github.com/dawn-network/node/privacy"
	"github.com/dawn-network/node/rpc"
)

// addrCaller dials a bare address (rather than a known node id) so
// bootstrap discovery can reach a peer it has no registry entry for yet.
// It satisfies discovery.PeerLister.
type addrCaller struct {
	manager *ConnManager
}

func newAddrCaller(manager *ConnManager) *addrCaller {
	return &addrCaller{manager: manager}
}

// ListPeers invokes node/list_peers against addr and decodes the result
// into discovery's wire PeerInfo shape.
func (a *addrCaller) ListPeers(ctx context.Context, addr string) ([]discovery.PeerInfo, error) {
	placeholderID := "bootstrap:" + addr
	a.manager.peers.AddPeer(placeholderID, addr, nil)

	raw, err := json.Marshal(rpc.Request{JSONRPC: "2.0", Method: "node/list_peers", ID: 1})
	if err != nil {
		return nil, err
	}
	resp, err := a.manager.Call(ctx, placeholderID, raw)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result *struct {
			Peers []peerSummary `json:"peers"`
		} `json:"result"`
		Error *rpc.Error `json:"error"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return nil, fmt.Errorf("node: decode list_peers response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("node: peer returned error: %s", envelope.Error.Message)
	}
	if envelope.Result == nil {
		return nil, nil
	}

	out := make([]discovery.PeerInfo, 0, len(envelope.Result.Peers))
	for _, p := range envelope.Result.Peers {
		out = append(out, discovery.PeerInfo{NodeID: p.NodeID, Address: p.Address})
	}
	return out, nil
}

// gossipAnnouncer delivers a gossip_announcement notification to a
// connected peer by address. It satisfies discovery.Announcer.
type gossipAnnouncer struct {
	manager *ConnManager
}

func newGossipAnnouncer(manager *ConnManager) *gossipAnnouncer {
	return &gossipAnnouncer{manager: manager}
}

func (g *gossipAnnouncer) SendGossip(ctx context.Context, peerAddr string, ann discovery.Announcement) error {
	placeholderID, raw, err := encodeGossipAnnouncement(peerAddr, ann)
	if err != nil {
		return err
	}
	g.manager.peers.AddPeer(placeholderID, peerAddr, nil)
	_, err = g.manager.Call(ctx, placeholderID, raw)
	return err
}

func encodeGossipAnnouncement(peerAddr string, ann discovery.Announcement) (placeholderID string, raw []byte, err error) {
	params, err := json.Marshal(ann)
	if err != nil {
		return "", nil, err
	}
	raw, err = json.Marshal(rpc.Request{JSONRPC: "2.0", Method: "node/gossip_announcement", Params: params})
	if err != nil {
		return "", nil, err
	}
	return "gossip:" + peerAddr, raw, nil
}

// privacyGossipAnnouncer routes gossip announcements through the privacy
// layer (padding and timing obfuscation) instead of sending them directly.
// It satisfies discovery.Announcer.
type privacyGossipAnnouncer struct {
	manager *ConnManager
	privacy *privacy.PrivacyLayer
}

func newPrivacyGossipAnnouncer(manager *ConnManager, layer *privacy.PrivacyLayer) *privacyGossipAnnouncer {
	return &privacyGossipAnnouncer{manager: manager, privacy: layer}
}

func (g *privacyGossipAnnouncer) SendGossip(ctx context.Context, peerAddr string, ann discovery.Announcement) error {
	placeholderID, raw, err := encodeGossipAnnouncement(peerAddr, ann)
	if err != nil {
		return err
	}
	g.manager.peers.AddPeer(placeholderID, peerAddr, nil)
	return g.privacy.Send(nil, placeholderID, raw)
}
