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

package discovery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dawn-network/node/crdt"
	"github.com/dawn-network/node/internal/metrics"
	"github.com/dawn-network/node/peer"
)

// DefaultAnnounceInterval matches the spec's default gossip cadence.
const DefaultAnnounceInterval = 60 * time.Second

// defaultMaxPeersShared bounds how many alive peers are embedded in a
// single announcement, to avoid flooding.
const defaultMaxPeersShared = 10

// Announcement is the gossip message fanned out to connected peers and
// delivered as a one-way notification (receivers must not reply).
type Announcement struct {
	Type          string                  `json:"type"`
	Timestamp     float64                 `json:"timestamp"`
	Peers         []PeerInfo              `json:"peers"`
	TaskRegistry  map[string]crdt.Entry   `json:"task_registry"`
	AgentRegistry map[string]crdt.Entry   `json:"agent_registry"`
}

// Announcer delivers a gossip announcement to a connected peer. The
// router supplies the concrete implementation (forwarding over the
// peer's transport as a notification, not a request).
type Announcer interface {
	SendGossip(ctx context.Context, peerAddr string, ann Announcement) error
}

// Gossip periodically announces this node's known peers and both CRDT
// registry states to every connected peer, and merges incoming
// announcements from others.
type Gossip struct {
	registry *peer.Registry
	selfID   string
	interval time.Duration
	maxPeers int
	announcer Announcer

	taskState  func() map[string]crdt.Entry
	agentState func() map[string]crdt.Entry
	mergeTasks  func(map[string]crdt.Entry)
	mergeAgents func(map[string]crdt.Entry)

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// NewGossip creates a Gossip discoverer. taskState/agentState snapshot
// the local CRDT state to embed in outgoing announcements; mergeTasks/
// mergeAgents apply an incoming announcement's CRDT state to the local
// registries.
func NewGossip(
	registry *peer.Registry,
	selfID string,
	interval time.Duration,
	announcer Announcer,
	taskState, agentState func() map[string]crdt.Entry,
	mergeTasks, mergeAgents func(map[string]crdt.Entry),
) *Gossip {
	if interval <= 0 {
		interval = DefaultAnnounceInterval
	}
	return &Gossip{
		registry:    registry,
		selfID:      selfID,
		interval:    interval,
		maxPeers:    defaultMaxPeersShared,
		announcer:   announcer,
		taskState:   taskState,
		agentState:  agentState,
		mergeTasks:  mergeTasks,
		mergeAgents: mergeAgents,
		stop:        make(chan struct{}),
	}
}

// Start launches the periodic announce loop. Calling Start twice is a
// no-op.
func (g *Gossip) Start(ctx context.Context) {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()

	go g.loop(ctx)
}

// Stop halts the announce loop.
func (g *Gossip) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	g.running = false
	close(g.stop)
}

func (g *Gossip) loop(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.announceOnce(ctx)
		case <-g.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gossip) announceOnce(ctx context.Context) {
	ann := g.buildAnnouncement()
	connected := 0
	for _, p := range g.registry.List() {
		if !p.Connected {
			continue
		}
		connected++
		if err := g.announcer.SendGossip(ctx, p.Address, ann); err != nil {
			log.Printf("discovery: gossip send to %s failed: %v", p.NodeID, err)
			continue
		}
		metrics.GossipRounds.WithLabelValues("sent").Inc()
	}
	metrics.PeersKnown.Set(float64(len(g.registry.List())))
	metrics.PeersConnected.Set(float64(connected))
}

func (g *Gossip) buildAnnouncement() Announcement {
	alive := g.registry.Alive(peer.DefaultPeerTimeout)
	if len(alive) > g.maxPeers {
		alive = alive[:g.maxPeers]
	}
	shared := make([]PeerInfo, 0, len(alive))
	for _, p := range alive {
		shared = append(shared, PeerInfo{NodeID: p.NodeID, Address: p.Address, Capabilities: p.Capabilities})
	}

	return Announcement{
		Type:          "gossip_announcement",
		Timestamp:     float64(time.Now().Unix()),
		Peers:         shared,
		TaskRegistry:  g.taskState(),
		AgentRegistry: g.agentState(),
	}
}

// HandleAnnouncement merges an incoming announcement's peer list
// (excluding the sender and self) and both CRDT states into the local
// registries.
func (g *Gossip) HandleAnnouncement(ann Announcement, senderNodeID string) {
	if ann.Type != "gossip_announcement" {
		return
	}
	metrics.GossipRounds.WithLabelValues("received").Inc()
	for _, p := range ann.Peers {
		if p.NodeID == senderNodeID || p.NodeID == g.selfID {
			continue
		}
		g.registry.AddPeer(p.NodeID, p.Address, p.Capabilities)
	}
	if ann.TaskRegistry != nil {
		g.mergeTasks(ann.TaskRegistry)
	}
	if ann.AgentRegistry != nil {
		g.mergeAgents(ann.AgentRegistry)
	}
}
