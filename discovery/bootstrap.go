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

// Package discovery implements the three cooperating peer-discovery
// mechanisms: bootstrap, local-network advertisement, and periodic
// gossip. Any of the three may be disabled independently; none owns the
// peer registry, they only populate it.
package discovery

import (
	"context"
	"fmt"

	"github.com/dawn-network/node/internal/metrics"
	"github.com/dawn-network/node/peer"
)

// PeerInfo is the wire shape of a discovered peer, shared by bootstrap
// peer-list responses and gossip announcements.
type PeerInfo struct {
	NodeID       string   `json:"node_id"`
	Address      string   `json:"address"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// PeerLister asks a remote node (reached at addr) for its known peer
// list, e.g. by invoking the `node/list_peers` RPC. The router supplies
// the concrete implementation.
type PeerLister interface {
	ListPeers(ctx context.Context, addr string) ([]PeerInfo, error)
}

// Bootstrap seeds the peer registry from a fixed set of well-known
// addresses, then asks each reachable one for its own peer list.
type Bootstrap struct {
	addresses []string
	registry  *peer.Registry
	lister    PeerLister
}

// NewBootstrap creates a Bootstrap discoverer over addresses.
func NewBootstrap(addresses []string, registry *peer.Registry, lister PeerLister) *Bootstrap {
	return &Bootstrap{addresses: addresses, registry: registry, lister: lister}
}

// Discover opens a provisional registry entry for every configured
// address, then — for each one that answers — merges its reported peer
// list into the registry. Failures to reach an individual bootstrap
// address are not fatal to the others.
func (b *Bootstrap) Discover(ctx context.Context) []string {
	var reached []string
	for _, addr := range b.addresses {
		placeholderID := fmt.Sprintf("bootstrap:%s", addr)
		b.registry.AddPeer(placeholderID, addr, nil)

		peers, err := b.lister.ListPeers(ctx, addr)
		if err != nil {
			metrics.BootstrapAttempts.WithLabelValues("unreachable").Inc()
			continue
		}
		metrics.BootstrapAttempts.WithLabelValues("reachable").Inc()
		reached = append(reached, addr)
		for _, p := range peers {
			b.registry.AddPeer(p.NodeID, p.Address, p.Capabilities)
		}
	}
	metrics.PeersKnown.Set(float64(len(b.registry.List())))
	return reached
}
