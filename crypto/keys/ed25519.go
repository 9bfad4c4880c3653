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

package keys

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ed25519KeyPair implements the KeyPair interface for Ed25519 keys.
// privateKey is nil for a pair reconstructed from public bytes alone
// (a remote peer's identity); Sign then fails with ErrNoPrivateKey.
type ed25519KeyPair struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	id         string
}

// GenerateEd25519KeyPair generates a new Ed25519 key pair with a fresh
// random 32-byte seed.
func GenerateEd25519KeyPair() (KeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ed25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         nodeID(publicKey),
	}, nil
}

// NewEd25519KeyPairFromSeed reconstructs a key pair from its persisted
// 32-byte seed, used to restore a stable node identity across restarts.
func NewEd25519KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)
	return &ed25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         nodeID(publicKey),
	}, nil
}

// NewEd25519PublicKeyPair constructs a verify-only key pair from a peer's
// raw 32-byte public key. Sign fails with ErrNoPrivateKey.
func NewEd25519PublicKeyPair(publicKey []byte) (KeyPair, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("keys: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
	}
	pub := ed25519.PublicKey(append([]byte(nil), publicKey...))
	return &ed25519KeyPair{
		publicKey: pub,
		id:        nodeID(pub),
	}, nil
}

// nodeID is the hex encoding of the raw Ed25519 public key, which is the
// node_id used throughout the peer, CRDT, and DHT layers.
func nodeID(pub ed25519.PublicKey) string {
	return hex.EncodeToString(pub)
}

// Seed returns the 32-byte seed suitable for persistence, or an error if
// this pair has no private key.
func (kp *ed25519KeyPair) Seed() ([]byte, error) {
	if kp.privateKey == nil {
		return nil, ErrNoPrivateKey
	}
	return append([]byte(nil), kp.privateKey.Seed()...), nil
}

// PublicKey returns the public key.
func (kp *ed25519KeyPair) PublicKey() crypto.PublicKey {
	return kp.publicKey
}

// PrivateKey returns the private key, or nil if this pair is public-only.
func (kp *ed25519KeyPair) PrivateKey() crypto.PrivateKey {
	return kp.privateKey
}

// Type returns the key type.
func (kp *ed25519KeyPair) Type() KeyType {
	return KeyTypeEd25519
}

// Sign signs the given message.
func (kp *ed25519KeyPair) Sign(message []byte) ([]byte, error) {
	if kp.privateKey == nil {
		return nil, ErrNoPrivateKey
	}
	return ed25519.Sign(kp.privateKey, message), nil
}

// Verify verifies the signature against this pair's public key alone.
func (kp *ed25519KeyPair) Verify(message, signature []byte) error {
	if !ed25519.Verify(kp.publicKey, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// ID returns the node_id: hex(pubkey).
func (kp *ed25519KeyPair) ID() string {
	return kp.id
}

// sha256Sum returns the SHA-256 digest of b, a fixed-size fingerprint
// distinct from the full node_id.
func sha256Sum(b []byte) [32]byte {
	return sha256.Sum256(b)
}
