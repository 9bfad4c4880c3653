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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/peer"
)

type fakeLister struct {
	responses map[string][]PeerInfo
	errs      map[string]error
}

func (f *fakeLister) ListPeers(ctx context.Context, addr string) ([]PeerInfo, error) {
	if err, ok := f.errs[addr]; ok {
		return nil, err
	}
	return f.responses[addr], nil
}

func TestBootstrap_DiscoverMergesReportedPeers(t *testing.T) {
	registry := peer.NewRegistry("")
	lister := &fakeLister{
		responses: map[string][]PeerInfo{
			"ws://node-a:8000": {
				{NodeID: "node-b", Address: "ws://node-b:8000"},
				{NodeID: "node-c", Address: "ws://node-c:8000"},
			},
		},
	}

	b := NewBootstrap([]string{"ws://node-a:8000"}, registry, lister)
	reached := b.Discover(context.Background())

	assert.Equal(t, []string{"ws://node-a:8000"}, reached)
	_, ok := registry.Get("node-b")
	assert.True(t, ok)
	_, ok = registry.Get("node-c")
	assert.True(t, ok)
}

func TestBootstrap_UnreachableAddressDoesNotBlockOthers(t *testing.T) {
	registry := peer.NewRegistry("")
	lister := &fakeLister{
		responses: map[string][]PeerInfo{
			"ws://good:8000": {{NodeID: "node-x", Address: "ws://node-x:8000"}},
		},
		errs: map[string]error{
			"ws://bad:8000": fmt.Errorf("connection refused"),
		},
	}

	b := NewBootstrap([]string{"ws://bad:8000", "ws://good:8000"}, registry, lister)
	reached := b.Discover(context.Background())

	require.Len(t, reached, 1)
	assert.Equal(t, "ws://good:8000", reached[0])
	_, ok := registry.Get("node-x")
	assert.True(t, ok)
}
