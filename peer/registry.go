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

package peer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Registry is the in-memory map of known peers, node_id → Peer. All
// operations are guarded by a single mutex: the spec models the registry
// as effectively single-writer, and Go's simplest honest mapping of that
// is exclusive access rather than a lock-free structure.
type Registry struct {
	mu    sync.Mutex
	peers map[string]*Peer
	now   func() time.Time

	persistPath string
}

// NewRegistry creates an empty peer registry. If persistPath is
// non-empty, Save/Load operate against that file.
func NewRegistry(persistPath string) *Registry {
	return &Registry{
		peers:       make(map[string]*Peer),
		now:         time.Now,
		persistPath: persistPath,
	}
}

// AddPeer inserts a new peer or merges into an existing one, per §4.5: a
// new peer is stamped first_seen=last_seen=now; an existing peer has its
// capabilities merged and last_seen refreshed, without touching counters
// or health.
func (r *Registry) AddPeer(nodeID, address string, capabilities []string) *Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	existing, ok := r.peers[nodeID]
	if !ok {
		p := newPeer(nodeID, address, now)
		p.Capabilities = append([]string(nil), capabilities...)
		r.peers[nodeID] = p
		return p
	}

	existing.LastSeen = now
	existing.Capabilities = mergeCapabilities(existing.Capabilities, capabilities)
	if address != "" {
		existing.Address = address
	}
	return existing
}

// Get returns the peer for nodeID, if known.
func (r *Registry) Get(nodeID string) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[nodeID]
	return p, ok
}

// Remove drops a peer from the registry unconditionally.
func (r *Registry) Remove(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, nodeID)
}

// SetConnected updates a known peer's connected flag.
func (r *Registry) SetConnected(nodeID string, connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[nodeID]; ok {
		p.Connected = connected
	}
}

// RecordSuccess applies the success health-score formula to nodeID.
func (r *Registry) RecordSuccess(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[nodeID]; ok {
		p.RecordSuccess()
	}
}

// RecordFailure applies the failure health-score formula to nodeID.
func (r *Registry) RecordFailure(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[nodeID]; ok {
		p.RecordFailure()
	}
}

// List returns all known peers, sorted by node id for deterministic
// iteration and testing.
func (r *Registry) List() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Alive returns the subset of peers considered alive under timeout.
func (r *Registry) Alive(timeout time.Duration) []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if p.IsAlive(now, timeout) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// SweepDead removes every peer whose last_seen exceeds timeout and
// returns the removed peers. This is the liveness sweep from §4.5; it
// runs only when a caller invokes it.
func (r *Registry) SweepDead(timeout time.Duration) []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var dead []*Peer
	for id, p := range r.peers {
		if !p.IsAlive(now, timeout) {
			dead = append(dead, p)
			delete(r.peers, id)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].NodeID < dead[j].NodeID })
	return dead
}

// snapshot is the on-disk persistence format.
type snapshot struct {
	Peers []*Peer `json:"peers"`
}

// Save serializes the registry to persistPath atomically: write to a
// temp file, fsync, then rename over the destination, so a crash never
// leaves a partially-written snapshot in place.
func (r *Registry) Save() error {
	if r.persistPath == "" {
		return nil
	}

	r.mu.Lock()
	snap := snapshot{Peers: make([]*Peer, 0, len(r.peers))}
	for _, p := range r.peers {
		snap.Peers = append(snap.Peers, p)
	}
	r.mu.Unlock()
	sort.Slice(snap.Peers, func(i, j int) bool { return snap.Peers[i].NodeID < snap.Peers[j].NodeID })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("peer: marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.persistPath), 0700); err != nil {
		return fmt.Errorf("peer: create data dir: %w", err)
	}

	tmp := r.persistPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("peer: open temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("peer: write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("peer: fsync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("peer: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, r.persistPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("peer: rename temp snapshot: %w", err)
	}
	return nil
}

// Load replaces the registry's contents with the snapshot at persistPath,
// if one exists. A missing file is not an error: a fresh node has none.
func (r *Registry) Load() error {
	if r.persistPath == "" {
		return nil
	}

	data, err := os.ReadFile(r.persistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("peer: read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("peer: decode snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = make(map[string]*Peer, len(snap.Peers))
	for _, p := range snap.Peers {
		r.peers[p.NodeID] = p
	}
	return nil
}

// Stats reports simple peer counts; the node's health checks read
// Total and Connected.
type Stats struct {
	Total     int `json:"total"`
	Connected int `json:"connected"`
	Alive     int `json:"alive"`
}

// Stats computes current registry statistics using DefaultPeerTimeout.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	s := Stats{Total: len(r.peers)}
	for _, p := range r.peers {
		if p.Connected {
			s.Connected++
		}
		if p.IsAlive(now, DefaultPeerTimeout) {
			s.Alive++
		}
	}
	return s
}
