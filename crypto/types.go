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

import "github.com/dawn-network/node/crypto/keys"

// KeyType identifies the algorithm family of a KeyPair. Defined in
// crypto/keys and aliased here so callers of the top-level package never
// need to import the keys subpackage directly.
type KeyType = keys.KeyType

const (
	KeyTypeEd25519 = keys.KeyTypeEd25519
	KeyTypeX25519  = keys.KeyTypeX25519
)

// KeyPair is a signing or key-agreement key pair. X25519 pairs return
// ErrSignNotSupported / ErrVerifyNotSupported from Sign/Verify; a pair
// constructed from public bytes alone returns ErrNoPrivateKey from Sign.
type KeyPair = keys.KeyPair

// KeyStorage persists KeyPairs keyed by an opaque id. Concrete backends:
// crypto/storage (in-memory, file) and crypto/storage/postgres.
type KeyStorage interface {
	Store(id string, keyPair KeyPair) error
	Load(id string) (KeyPair, error)
	Delete(id string) error
	List() ([]string, error)
	Exists(id string) bool
}
