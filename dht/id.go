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

// Package dht is a Kademlia-style distributed hash table: 256-bit
// identifier space, K=20 buckets, iterative FIND_NODE / FIND_VALUE /
// STORE with alpha=3 parallel queries per round.
package dht

import (
	"encoding/hex"
	"fmt"
	"math/bits"
)

// K is the maximum number of entries per k-bucket.
const K = 20

// Alpha is the number of parallel queries issued per iterative round.
const Alpha = 3

// ID is a 256-bit Kademlia identifier: the raw Ed25519 node public key.
type ID [32]byte

// ParseID decodes a hex-encoded node_id into an ID.
func ParseID(nodeID string) (ID, error) {
	var id ID
	raw, err := hex.DecodeString(nodeID)
	if err != nil {
		return id, fmt.Errorf("dht: node_id is not hex: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("dht: node_id must decode to %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// String returns the hex encoding, the canonical node_id form.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Xor returns the bitwise XOR distance between id and other.
func (id ID) Xor(other ID) ID {
	var out ID
	for i := range id {
		out[i] = id[i] ^ other[i]
	}
	return out
}

// bucketIndex returns bit_length(xor)-1, with distance 0 mapping to
// bucket 0 per §4.10.
func (id ID) bucketIndex(other ID) int {
	d := id.Xor(other)
	for i, b := range d {
		if b == 0 {
			continue
		}
		bitLen := bits.Len8(b)
		return (len(d)-1-i)*8 + bitLen - 1
	}
	return 0
}

// lessByDistance reports whether a is closer to from than b under the XOR
// metric — used to sort candidates by distance.
func lessByDistance(from, a, b ID) bool {
	da := from.Xor(a)
	db := from.Xor(b)
	for i := range da {
		if da[i] != db[i] {
			return da[i] < db[i]
		}
	}
	return false
}
