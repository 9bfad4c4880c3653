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
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dawn-network/node/internal/metrics"
)

// X25519KeyPair holds an ephemeral X25519 private key and its public bytes.
// It is generated fresh for every handshake; it never persists.
type X25519KeyPair struct {
	privateKey *ecdh.PrivateKey
	publicKey  *ecdh.PublicKey
	id         string
}

// GenerateX25519KeyPair generates a new ephemeral X25519 key pair.
func GenerateX25519KeyPair() (*X25519KeyPair, error) {
	privateKey, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keys: generate ephemeral x25519 key: %w", err)
	}
	publicKey := privateKey.PublicKey()
	hash := sha256.Sum256(publicKey.Bytes())
	return &X25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         hex.EncodeToString(hash[:8]),
	}, nil
}

// PublicKey returns the public key.
func (kp *X25519KeyPair) PublicKey() crypto.PublicKey {
	return kp.publicKey
}

// PublicKeyBytes returns the 32-byte public key as sent on the wire in a
// key_exchange handshake message.
func (kp *X25519KeyPair) PublicKeyBytes() []byte {
	return kp.publicKey.Bytes()
}

// PrivateKey returns the private key.
func (kp *X25519KeyPair) PrivateKey() crypto.PrivateKey {
	return kp.privateKey
}

// Type returns the key type.
func (kp *X25519KeyPair) Type() KeyType {
	return KeyTypeX25519
}

// ID returns a unique identifier for this ephemeral key pair.
func (kp *X25519KeyPair) ID() string {
	return kp.id
}

// Sign returns an error: X25519 keys are for key agreement only.
func (kp *X25519KeyPair) Sign(message []byte) ([]byte, error) {
	return nil, ErrSignNotSupported
}

// Verify returns an error: X25519 keys are for key agreement only.
func (kp *X25519KeyPair) Verify(message, signature []byte) error {
	return ErrVerifyNotSupported
}

// ECDH computes the raw X25519 Diffie-Hellman shared point with a peer's
// 32-byte public key. The result is NOT yet a usable session key: callers
// must run it through crypto.HKDFDerive with a salt/info pair before using
// it as an AEAD key, per the handshake spec.
func (kp *X25519KeyPair) ECDH(peerPubBytes []byte) (shared []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("ecdh", "x25519").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("ecdh").Inc()
		} else {
			metrics.CryptoOperations.WithLabelValues("ecdh", "x25519").Inc()
		}
	}()

	curve := ecdh.X25519()
	peerPub, err := curve.NewPublicKey(peerPubBytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse peer x25519 public key: %w", err)
	}
	shared, err = kp.privateKey.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("keys: x25519 ecdh: %w", err)
	}
	var zero [32]byte
	if subtle.ConstantTimeCompare(shared, zero[:]) == 1 {
		err = fmt.Errorf("keys: x25519 ecdh produced a low-order point")
		return nil, err
	}
	return shared, nil
}

// NewX25519PublicKey parses a peer's raw public key bytes, used by the
// onion router to validate a per-hop ephemeral key before running ECDH
// against it.
func NewX25519PublicKey(publicKeyBytes []byte) (*ecdh.PublicKey, error) {
	return ecdh.X25519().NewPublicKey(publicKeyBytes)
}
