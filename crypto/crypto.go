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

// Package crypto provides the cryptographic primitives the node identity,
// transport handshake, and privacy layer build on: Ed25519 signing, X25519
// ECDH key exchange, HKDF-SHA256 derivation, AES-256-GCM AEAD, hashing, and
// a constant-time comparison.
//
// Key pair construction and persistence live in subpackages:
//   - crypto/keys: Ed25519 / X25519 key pair construction
//   - crypto/storage: key-pair persistence backends
package crypto

import (
	"errors"

	"github.com/dawn-network/node/crypto/keys"
)

var (
	// ErrInvalidSignature is returned when a signature fails verification.
	ErrInvalidSignature = keys.ErrInvalidSignature
	// ErrKeyNotFound is returned by a KeyStorage when no key exists for an id.
	ErrKeyNotFound = errors.New("crypto: key not found")
	// ErrNoPrivateKey is returned when signing is attempted on a key pair
	// constructed from public-key bytes alone.
	ErrNoPrivateKey = keys.ErrNoPrivateKey
	// ErrSignNotSupported is returned by key types that cannot sign (X25519).
	ErrSignNotSupported = keys.ErrSignNotSupported
	// ErrVerifyNotSupported is returned by key types that cannot verify (X25519).
	ErrVerifyNotSupported = keys.ErrVerifyNotSupported
	// ErrDecryption is returned when AEAD decryption fails (bad tag, nonce, or AAD).
	ErrDecryption = errors.New("crypto: decryption failed")
)
