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

package transport

import (
	"sync"

	dawncrypto "github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/crypto/keys"
)

// session holds the per-connection handshake and AEAD keying state. One
// session exists per Conn and is rekeyed fresh on every new handshake;
// there is no mid-session key rotation in the base protocol.
type session struct {
	mu sync.RWMutex

	ephemeral *keys.X25519KeyPair
	aeadKey   []byte
	peerID    string
	established bool
}

func newSession() (*session, error) {
	ephemeral, err := keys.GenerateX25519KeyPair()
	if err != nil {
		return nil, err
	}
	return &session{ephemeral: ephemeral}, nil
}

// complete derives the session's AEAD key from the peer's ephemeral
// public key and marks the handshake established.
func (s *session) complete(peerNodeID string, peerPublicKey []byte) error {
	shared, err := s.ephemeral.ECDH(peerPublicKey)
	if err != nil {
		return err
	}
	key, err := dawncrypto.HKDFDerive([]byte(dawncrypto.KeyExchangeSalt), shared, nil, 32)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.aeadKey = key
	s.peerID = peerNodeID
	s.established = true
	return nil
}

func (s *session) isEstablished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.established
}

func (s *session) key() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aeadKey
}

func (s *session) remotePeerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerID
}
