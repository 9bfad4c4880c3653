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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/dawn-network/node/internal/metrics"
)

// NonceSize is the AES-GCM nonce size in bytes (96 bits).
const NonceSize = 12

// TagSize is the AES-GCM authentication tag size in bytes (128 bits).
const TagSize = 16

// Seal encrypts plaintext under a 32-byte AES-256-GCM key with a fresh
// random 96-bit nonce, authenticating aad. It returns nonce and ciphertext
// (which includes the 16-byte tag) separately.
func Seal(key, plaintext, aad []byte) (nonce, ciphertext []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("seal", "aes256gcm").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("seal").Inc()
		} else {
			metrics.CryptoOperations.WithLabelValues("seal", "aes256gcm").Inc()
		}
	}()

	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, aad)
	return nonce, ciphertext, nil
}

// Open decrypts ciphertext (including its 16-byte tag) under key/nonce,
// authenticating aad. It fails with ErrDecryption on any tag, nonce, or
// AAD mismatch.
func Open(key, nonce, ciphertext, aad []byte) (plaintext []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("open", "aes256gcm").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("open").Inc()
		} else {
			metrics.CryptoOperations.WithLabelValues("open", "aes256gcm").Inc()
		}
	}()

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrDecryption
	}
	plaintext, err = aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: AES-256-GCM key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return aead, nil
}
