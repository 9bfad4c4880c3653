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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddPeerInsertsFresh(t *testing.T) {
	r := NewRegistry("")
	p := r.AddPeer("node-a", "ws://a", []string{"tool:x"})
	assert.Equal(t, p.FirstSeen, p.LastSeen)
	assert.Equal(t, 0.5, p.HealthScore)
}

func TestRegistry_AddPeerMergesWithoutResettingCountersOrHealth(t *testing.T) {
	r := NewRegistry("")
	r.AddPeer("node-a", "ws://a", []string{"tool:x"})
	r.RecordSuccess("node-a")
	before, _ := r.Get("node-a")
	beforeHealth := before.HealthScore

	r.AddPeer("node-a", "ws://a", []string{"tool:y"})
	after, _ := r.Get("node-a")
	assert.Equal(t, beforeHealth, after.HealthScore)
	assert.ElementsMatch(t, []string{"tool:x", "tool:y"}, after.Capabilities)
}

func TestRegistry_HealthScoring(t *testing.T) {
	r := NewRegistry("")
	r.AddPeer("node-a", "ws://a", nil)
	r.RecordSuccess("node-a")
	p, _ := r.Get("node-a")
	assert.InDelta(t, 0.55, p.HealthScore, 1e-9)

	r.RecordFailure("node-a")
	p, _ = r.Get("node-a")
	assert.InDelta(t, 0.495, p.HealthScore, 1e-9)
}

func TestRegistry_SweepDeadRemovesStalePeers(t *testing.T) {
	r := NewRegistry("")
	fixed := time.Now()
	r.now = func() time.Time { return fixed }
	r.AddPeer("stale", "ws://s", nil)

	r.now = func() time.Time { return fixed.Add(10 * time.Minute) }
	dead := r.SweepDead(5 * time.Minute)
	require.Len(t, dead, 1)
	assert.Equal(t, "stale", dead[0].NodeID)
	_, ok := r.Get("stale")
	assert.False(t, ok)
}

func TestRegistry_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peers.json")

	r := NewRegistry(path)
	r.AddPeer("node-a", "ws://a", []string{"tool:x"})
	require.NoError(t, r.Save())

	loaded := NewRegistry(path)
	require.NoError(t, loaded.Load())
	p, ok := loaded.Get("node-a")
	require.True(t, ok)
	assert.Equal(t, "ws://a", p.Address)
}

func TestRegistry_LoadMissingFileIsNotAnError(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.NoError(t, r.Load())
}
