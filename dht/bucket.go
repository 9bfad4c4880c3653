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
	"sort"
	"sync"
	"time"
)

// NodeRecord is one DHT contact: a node id, its transport address, and
// when it was last seen.
type NodeRecord struct {
	NodeID   ID
	Address  string
	LastSeen time.Time
}

// bucket is an ordered list of up to K contacts, most recently seen
// first (head).
type bucket struct {
	entries []NodeRecord
}

func (b *bucket) touch(rec NodeRecord) {
	for i, e := range b.entries {
		if e.NodeID == rec.NodeID {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			break
		}
	}
	b.entries = append([]NodeRecord{rec}, b.entries...)
	if len(b.entries) > K {
		// Drop the oldest (tail) entry.
		b.entries = b.entries[:K]
	}
}

func (b *bucket) isFull() bool {
	return len(b.entries) >= K
}

// RoutingTable is the full set of 256 k-buckets for a local node.
type RoutingTable struct {
	mu      sync.Mutex
	self    ID
	buckets [256]bucket
}

// NewRoutingTable creates an empty routing table rooted at self.
func NewRoutingTable(self ID) *RoutingTable {
	return &RoutingTable{self: self}
}

// AddNode inserts or refreshes rec in its appropriate bucket. A full
// bucket drops its oldest entry to make room, per §4.10.
func (t *RoutingTable) AddNode(rec NodeRecord) {
	if rec.NodeID == t.self {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.self.bucketIndex(rec.NodeID)
	t.buckets[idx].touch(rec)
}

// Closest returns up to n contacts closest to target across all buckets.
func (t *RoutingTable) Closest(target ID, n int) []NodeRecord {
	t.mu.Lock()
	all := make([]NodeRecord, 0, K)
	for i := range t.buckets {
		all = append(all, t.buckets[i].entries...)
	}
	t.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return lessByDistance(target, all[i].NodeID, all[j].NodeID)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Size returns the total number of contacts across all buckets.
func (t *RoutingTable) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for i := range t.buckets {
		total += len(t.buckets[i].entries)
	}
	return total
}
