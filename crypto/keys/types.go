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
	"errors"
)

// KeyType identifies the algorithm family of a KeyPair.
type KeyType string

const (
	KeyTypeEd25519 KeyType = "ed25519"
	KeyTypeX25519  KeyType = "x25519"
)

// KeyPair is a signing or key-agreement key pair. X25519 pairs return
// ErrSignNotSupported / ErrVerifyNotSupported from Sign/Verify; a pair
// constructed from public bytes alone returns ErrNoPrivateKey from Sign.
type KeyPair interface {
	PublicKey() crypto.PublicKey
	PrivateKey() crypto.PrivateKey
	Type() KeyType
	ID() string
	Sign(message []byte) ([]byte, error)
	Verify(message, signature []byte) error
}

var (
	// ErrInvalidSignature is returned when a signature fails verification.
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	// ErrNoPrivateKey is returned when signing is attempted on a key pair
	// constructed from public-key bytes alone.
	ErrNoPrivateKey = errors.New("crypto: no private key available")
	// ErrSignNotSupported is returned by key types that cannot sign (X25519).
	ErrSignNotSupported = errors.New("crypto: key type does not support signing")
	// ErrVerifyNotSupported is returned by key types that cannot verify (X25519).
	ErrVerifyNotSupported = errors.New("crypto: key type does not support verification")
)
