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

package crypto

import (
	"time"

	"github.com/dawn-network/node/crypto/keys"
	"github.com/dawn-network/node/internal/metrics"
)

// Identity wraps a node's long-lived Ed25519 signing key pair. node_id is
// the hex encoding of the 32-byte public key and is stable across
// serialize/deserialize of the 32-byte seed.
type Identity struct {
	KeyPair KeyPair
}

// NewIdentity generates a fresh node identity.
func NewIdentity() (*Identity, error) {
	kp, err := keys.GenerateEd25519KeyPair()
	if err != nil {
		return nil, err
	}
	return &Identity{KeyPair: kp}, nil
}

// NewIdentityFromSeed reconstructs an identity from its persisted 32-byte
// seed, restoring a stable node_id across restarts.
func NewIdentityFromSeed(seed []byte) (*Identity, error) {
	kp, err := keys.NewEd25519KeyPairFromSeed(seed)
	if err != nil {
		return nil, err
	}
	return &Identity{KeyPair: kp}, nil
}

// NewRemoteIdentity constructs a verify-only identity for a peer, given
// the peer's raw 32-byte Ed25519 public key.
func NewRemoteIdentity(publicKey []byte) (*Identity, error) {
	kp, err := keys.NewEd25519PublicKeyPair(publicKey)
	if err != nil {
		return nil, err
	}
	return &Identity{KeyPair: kp}, nil
}

// NodeID returns the hex-encoded public key.
func (id *Identity) NodeID() string {
	return id.KeyPair.ID()
}

// Sign signs a message with the identity's private key.
func (id *Identity) Sign(message []byte) ([]byte, error) {
	start := time.Now()
	sig, err := id.KeyPair.Sign(message)
	metrics.CryptoOperationDuration.WithLabelValues("sign", "ed25519").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("sign").Inc()
		return nil, err
	}
	metrics.CryptoOperations.WithLabelValues("sign", "ed25519").Inc()
	return sig, nil
}

// Verify verifies a signature made by this identity.
func (id *Identity) Verify(message, signature []byte) error {
	start := time.Now()
	err := id.KeyPair.Verify(message, signature)
	metrics.CryptoOperationDuration.WithLabelValues("verify", "ed25519").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("verify").Inc()
		return err
	}
	metrics.CryptoOperations.WithLabelValues("verify", "ed25519").Inc()
	return nil
}

// Seed returns the 32-byte seed for persistence.
func (id *Identity) Seed() ([]byte, error) {
	ed, ok := id.KeyPair.(interface{ Seed() ([]byte, error) })
	if !ok {
		return nil, ErrNoPrivateKey
	}
	return ed.Seed()
}

// KeyExchangeSalt is the fixed HKDF salt used to derive a session's AEAD
// key from an X25519 ECDH shared secret, per §3's key-exchange handshake.
const KeyExchangeSalt = "project-dawn-v2-key-exchange"
