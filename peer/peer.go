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

// Package peer is the in-memory registry of known network peers: their
// identity, liveness, best-effort capability mirror, and a health score
// used only for discovery ranking, never for hard exclusion from
// forwarding eligibility.
package peer

import "time"

// DefaultPeerTimeout is how long since last_seen before a peer is
// considered no longer alive.
const DefaultPeerTimeout = 300 * time.Second

// Peer is one known network participant.
type Peer struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Connected bool      `json:"connected"`

	Capabilities []string `json:"capabilities"`

	HealthScore float64 `json:"health_score"`

	ConnectionAttempts    int `json:"connection_attempts"`
	SuccessfulConnections int `json:"successful_connections"`
	FailedConnections     int `json:"failed_connections"`
}

// newPeer creates a freshly-seen peer with a neutral health score.
func newPeer(nodeID, address string, now time.Time) *Peer {
	return &Peer{
		NodeID:      nodeID,
		Address:     address,
		FirstSeen:   now,
		LastSeen:    now,
		HealthScore: 0.5,
	}
}

// IsAlive reports whether this peer has been seen within timeout of now.
func (p *Peer) IsAlive(now time.Time, timeout time.Duration) bool {
	return now.Sub(p.LastSeen) < timeout
}

// RecordSuccess nudges the health score toward 1 and bumps counters, per
// the scoring formula h ← min(1, h + (1−h)·0.1).
func (p *Peer) RecordSuccess() {
	p.HealthScore = minF(1, p.HealthScore+(1-p.HealthScore)*0.1)
	p.ConnectionAttempts++
	p.SuccessfulConnections++
}

// RecordFailure decays the health score, per h ← max(0, h·0.9).
func (p *Peer) RecordFailure() {
	p.HealthScore = maxF(0, p.HealthScore*0.9)
	p.ConnectionAttempts++
	p.FailedConnections++
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func mergeCapabilities(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, c := range existing {
		seen[c] = true
	}
	for _, c := range incoming {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
