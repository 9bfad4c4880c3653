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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/peer"
)

// TestMDNSDiscovery_NodesLearnAboutEachOther requires multicast-capable
// loopback networking; skip in sandboxes where that is unavailable.
func TestMDNSDiscovery_NodesLearnAboutEachOther(t *testing.T) {
	registryA := peer.NewRegistry("")
	a := NewMDNSDiscovery(registryA, "node-a", "ws://node-a:9001")
	if err := a.Start(50 * time.Millisecond); err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer a.Stop()

	registryB := peer.NewRegistry("")
	b := NewMDNSDiscovery(registryB, "node-b", "ws://node-b:9002")
	require.NoError(t, b.Start(50*time.Millisecond))
	defer b.Stop()

	require.Eventually(t, func() bool {
		_, ok := registryA.Get("node-b")
		return ok
	}, 3*time.Second, 50*time.Millisecond)

	p, ok := registryA.Get("node-b")
	require.True(t, ok)
	assert.Equal(t, "ws://node-b:9002", p.Address)
}
