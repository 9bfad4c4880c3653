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

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterLocalAgent(t *testing.T) {
	r := New("node-a")
	d := &Descriptor{NodeID: "node-a", LocalID: "files", Name: "files agent", Available: true,
		Tools: []Capability{{Name: "read_file"}}}
	require.NoError(t, r.RegisterLocalAgent(d))

	got, ok := r.ByID("files")
	require.True(t, ok)
	assert.Equal(t, "node-a:files", got.AgentID)
	assert.True(t, got.Available)
}

func TestRegistry_RegisterLocalAgentWrongNodeRejected(t *testing.T) {
	r := New("node-a")
	err := r.RegisterLocalAgent(&Descriptor{NodeID: "node-b", LocalID: "x"})
	assert.Error(t, err)
}

func TestRegistry_RegisterRemoteAgentRefusesSelfOverwrite(t *testing.T) {
	r := New("node-a")
	require.NoError(t, r.RegisterLocalAgent(&Descriptor{NodeID: "node-a", LocalID: "files", Name: "mine"}))

	err := r.RegisterRemoteAgent(&Descriptor{NodeID: "node-a", LocalID: "files", Name: "spoofed"})
	assert.Error(t, err)

	got, _ := r.ByID("files")
	assert.Equal(t, "mine", got.Name)
}

func TestRegistry_ByCapability(t *testing.T) {
	r := New("node-a")
	require.NoError(t, r.RegisterLocalAgent(&Descriptor{
		NodeID: "node-a", LocalID: "files",
		Tools: []Capability{{Name: "read_file"}},
	}))
	require.NoError(t, r.RegisterRemoteAgent(&Descriptor{
		NodeID: "node-b", LocalID: "code",
		Resources: []Capability{{Name: "repo", URI: "file:///repo"}},
	}))

	tools := r.ByCapability(KindTool, "read_file")
	require.Len(t, tools, 1)
	assert.Equal(t, "node-a:files", tools[0].AgentID)

	resources := r.ByCapability(KindResource, "")
	require.Len(t, resources, 1)
}

func TestRegistry_UnregisterLocalAgent(t *testing.T) {
	r := New("node-a")
	require.NoError(t, r.RegisterLocalAgent(&Descriptor{NodeID: "node-a", LocalID: "files"}))
	r.UnregisterLocalAgent("files")
	_, ok := r.ByID("files")
	assert.False(t, ok)
}

func TestRegistry_MergeAdoptsRemoteState(t *testing.T) {
	a := New("node-a")
	b := New("node-b")
	require.NoError(t, b.RegisterLocalAgent(&Descriptor{NodeID: "node-b", LocalID: "code", Available: true}))

	a.Merge(b.GetState())
	got, ok := a.ByID("node-b:code")
	require.True(t, ok)
	assert.True(t, got.Available)
}

func TestRegistry_Stats(t *testing.T) {
	r := New("node-a")
	require.NoError(t, r.RegisterLocalAgent(&Descriptor{NodeID: "node-a", LocalID: "files", Available: true}))
	require.NoError(t, r.RegisterRemoteAgent(&Descriptor{NodeID: "node-b", LocalID: "code", Available: false}))

	s := r.Stats()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Local)
	assert.Equal(t, 1, s.Remote)
	assert.Equal(t, 1, s.Available)
}
