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

package privacy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/crypto/keys"
)

type testNode struct {
	id      string
	keyPair *keys.X25519KeyPair
}

func newTestNode(t *testing.T, id string) testNode {
	t.Helper()
	kp, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	return testNode{id: id, keyPair: kp}
}

func (n testNode) hop() Hop {
	return Hop{NodeID: n.id, X25519PublicKey: n.keyPair.PublicKeyBytes()}
}

func TestOnionRouter_BuildAndPeelThreeHopCircuit(t *testing.T) {
	r := NewOnionRouter()

	hop1 := newTestNode(t, "node-1")
	hop2 := newTestNode(t, "node-2")
	target := newTestNode(t, "node-target")

	message := []byte("deliver this payload intact")
	outer, err := r.Build([]Hop{hop1.hop(), hop2.hop(), target.hop()}, message)
	require.NoError(t, err)

	// hop1 peels the outermost layer and learns to forward to hop2.
	res1, err := r.Peel(hop1.keyPair, hop1.id, outer)
	require.NoError(t, err)
	assert.False(t, res1.Final)
	assert.Equal(t, hop2.id, res1.NextHop)

	var layer2 Layer
	require.NoError(t, json.Unmarshal(res1.Payload, &layer2))

	// hop2 peels its layer and learns to forward to target.
	res2, err := r.Peel(hop2.keyPair, hop2.id, &layer2)
	require.NoError(t, err)
	assert.False(t, res2.Final)
	assert.Equal(t, target.id, res2.NextHop)

	var layer3 Layer
	require.NoError(t, json.Unmarshal(res2.Payload, &layer3))

	// target peels the innermost layer and recovers the original message.
	res3, err := r.Peel(target.keyPair, target.id, &layer3)
	require.NoError(t, err)
	assert.True(t, res3.Final)
	assert.Equal(t, message, res3.Payload)
}

func TestOnionRouter_SingleHopCircuit(t *testing.T) {
	r := NewOnionRouter()
	target := newTestNode(t, "solo")

	outer, err := r.Build([]Hop{target.hop()}, []byte("direct"))
	require.NoError(t, err)

	res, err := r.Peel(target.keyPair, target.id, outer)
	require.NoError(t, err)
	assert.True(t, res.Final)
	assert.Equal(t, []byte("direct"), res.Payload)
}

func TestOnionRouter_WrongHopCannotPeelForeignLayer(t *testing.T) {
	r := NewOnionRouter()
	hop1 := newTestNode(t, "node-1")
	target := newTestNode(t, "node-target")

	outer, err := r.Build([]Hop{hop1.hop(), target.hop()}, []byte("secret"))
	require.NoError(t, err)

	_, err = r.Peel(target.keyPair, target.id, outer)
	assert.Error(t, err)
}

func TestOnionRouter_EmptyPathRejected(t *testing.T) {
	r := NewOnionRouter()
	_, err := r.Build(nil, []byte("x"))
	assert.Error(t, err)
}
