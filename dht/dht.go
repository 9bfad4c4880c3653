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
	"crypto/sha256"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dawn-network/node/internal/metrics"
)

// FindNodeResult is what a remote dht_find_node call returns.
type FindNodeResult struct {
	Nodes []NodeRecord
}

// FindValueResult is what a remote dht_find_value call returns: either a
// value, or (if absent) the closest nodes the responder knows.
type FindValueResult struct {
	Value []byte
	Found bool
	Nodes []NodeRecord
}

// Querier issues the three DHT RPCs against a remote node. The router
// supplies the concrete implementation (dialing the peer's transport and
// invoking the corresponding JSON-RPC method); this package stays
// transport-agnostic so it can be unit tested with a fake.
type Querier interface {
	FindNode(ctx context.Context, peer NodeRecord, target ID) (FindNodeResult, error)
	FindValue(ctx context.Context, peer NodeRecord, key string) (FindValueResult, error)
	Store(ctx context.Context, peer NodeRecord, key string, value []byte, ttl time.Duration) error
}

// maxRounds bounds an iterative lookup's round count, per §4.10.
const maxRounds = 10

// DHT owns the local routing table and value store and drives the
// iterative FIND_NODE / FIND_VALUE / STORE protocols.
type DHT struct {
	self    ID
	table   *RoutingTable
	local   *localStore
	querier Querier
}

// New creates a DHT rooted at self, querying peers through querier.
func New(self ID, querier Querier) *DHT {
	return &DHT{self: self, table: NewRoutingTable(self), local: newLocalStore(), querier: querier}
}

// AddNode seeds the routing table with a known contact, e.g. from a
// bootstrap peer or a gossip announcement.
func (d *DHT) AddNode(rec NodeRecord) {
	d.table.AddNode(rec)
	metrics.DHTRoutingTableSize.Set(float64(d.table.Size()))
}

// Size returns the number of contacts currently known.
func (d *DHT) Size() int {
	return d.table.Size()
}

// iterate runs the generic iterative-lookup shape shared by FindNode and
// FindValue: seed a shortlist from the routing table, query up to Alpha
// unseen entries per round, merge and re-sort results (truncated to K),
// and stop once every shortlist entry has been queried or maxRounds
// rounds have run.
func (d *DHT) iterate(ctx context.Context, target ID, query func(ctx context.Context, peer NodeRecord) ([]NodeRecord, bool, []byte)) ([]NodeRecord, []byte, bool) {
	seen := map[ID]bool{d.self: true}
	shortlist := d.table.Closest(target, K)

	round := 0
	defer func() { metrics.DHTLookupRounds.Observe(float64(round)) }()

	for ; round < maxRounds; round++ {
		var toQuery []NodeRecord
		for _, n := range shortlist {
			if len(toQuery) >= Alpha {
				break
			}
			if !seen[n.NodeID] {
				toQuery = append(toQuery, n)
			}
		}
		if len(toQuery) == 0 {
			break
		}

		var mu sync.Mutex
		var discovered []NodeRecord
		var foundValue []byte
		var valueFound bool

		g, gctx := errgroup.WithContext(ctx)
		for _, peer := range toQuery {
			peer := peer
			g.Go(func() error {
				nodes, found, value := query(gctx, peer)
				mu.Lock()
				defer mu.Unlock()
				seen[peer.NodeID] = true
				if found {
					valueFound = true
					foundValue = value
					return nil
				}
				discovered = append(discovered, nodes...)
				return nil
			})
		}
		// Intentionally ignore errgroup's error: a single unreachable
		// peer must not abort the round, only be excluded from results.
		_ = g.Wait()

		if valueFound {
			return nil, foundValue, true
		}

		for _, n := range discovered {
			d.table.AddNode(n)
		}
		shortlist = mergeUnique(shortlist, discovered)
		sort.Slice(shortlist, func(i, j int) bool {
			return lessByDistance(target, shortlist[i].NodeID, shortlist[j].NodeID)
		})
		if len(shortlist) > K {
			shortlist = shortlist[:K]
		}
	}

	return shortlist, nil, false
}

func mergeUnique(a, b []NodeRecord) []NodeRecord {
	seen := make(map[ID]bool, len(a))
	out := make([]NodeRecord, 0, len(a)+len(b))
	for _, n := range a {
		if !seen[n.NodeID] {
			seen[n.NodeID] = true
			out = append(out, n)
		}
	}
	for _, n := range b {
		if !seen[n.NodeID] {
			seen[n.NodeID] = true
			out = append(out, n)
		}
	}
	return out
}

// FindNode runs an iterative lookup for target and returns up to K
// closest known nodes.
func (d *DHT) FindNode(ctx context.Context, target ID) []NodeRecord {
	result, _, _ := d.iterate(ctx, target, func(ctx context.Context, peer NodeRecord) ([]NodeRecord, bool, []byte) {
		res, err := d.querier.FindNode(ctx, peer, target)
		if err != nil {
			return nil, false, nil
		}
		return res.Nodes, false, nil
	})
	outcome := "exhausted"
	if len(result) > 0 {
		outcome = "found"
	}
	metrics.DHTLookups.WithLabelValues("find_node", outcome).Inc()
	return result
}

// FindValue runs an iterative lookup for key, stopping as soon as any
// queried peer (or the local store) returns a value.
func (d *DHT) FindValue(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := d.local.get(key); ok {
		metrics.DHTLookups.WithLabelValues("find_value", "found").Inc()
		return v, true
	}

	target := keyToID(key)
	_, value, found := d.iterate(ctx, target, func(ctx context.Context, peer NodeRecord) ([]NodeRecord, bool, []byte) {
		res, err := d.querier.FindValue(ctx, peer, key)
		if err != nil {
			return nil, false, nil
		}
		if res.Found {
			return nil, true, res.Value
		}
		return res.Nodes, false, nil
	})
	outcome := "exhausted"
	if found {
		outcome = "found"
	}
	metrics.DHTLookups.WithLabelValues("find_value", outcome).Inc()
	return value, found
}

// Store hashes key with SHA-256, runs FindNode on the hash, and issues
// dht_store to the K closest remote nodes in parallel, in addition to
// always writing the value locally. It succeeds (returns true) if at
// least one remote store acknowledges, or there were no remote peers to
// try; the local write is unconditional either way.
func (d *DHT) Store(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	d.local.put(key, value, ttl)
	metrics.DHTStores.WithLabelValues("local").Inc()

	target := keyToID(key)
	closest := d.FindNode(ctx, target)
	if len(closest) == 0 {
		return true
	}

	var acked int32
	g, gctx := errgroup.WithContext(ctx)
	for _, peer := range closest {
		peer := peer
		g.Go(func() error {
			if err := d.querier.Store(gctx, peer, key, value, ttl); err == nil {
				atomic.AddInt32(&acked, 1)
				metrics.DHTStores.WithLabelValues("remote").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
	return atomic.LoadInt32(&acked) > 0
}

// keyToID maps an arbitrary string key into the 256-bit identifier space
// via SHA-256, per §4.10's STORE contract.
func keyToID(key string) ID {
	return ID(sha256.Sum256([]byte(key)))
}

// HandleFindNode answers an incoming dht_find_node RPC with the K
// closest contacts this node knows, from its own routing table.
func (d *DHT) HandleFindNode(target ID) []NodeRecord {
	return d.table.Closest(target, K)
}

// HandleFindValue answers an incoming dht_find_value RPC: the stored
// value if unexpired, else the K closest known nodes.
func (d *DHT) HandleFindValue(key string) FindValueResult {
	if v, ok := d.local.get(key); ok {
		return FindValueResult{Value: v, Found: true}
	}
	return FindValueResult{Nodes: d.table.Closest(keyToID(key), K)}
}

// HandleStore answers an incoming dht_store RPC by inserting into local
// storage with expires_at = now + ttl.
func (d *DHT) HandleStore(key string, value []byte, ttl time.Duration) {
	d.local.put(key, value, ttl)
}

// Sweep reclaims expired local entries; safe to call periodically from a
// background maintenance task.
func (d *DHT) Sweep() int {
	return d.local.sweep()
}
