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
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"github.com/dawn-network/node/internal/metrics"
)

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// SHA512 returns the SHA-512 digest of data.
func SHA512(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:]
}

// BLAKE2b256 returns the 256-bit BLAKE2b digest of data.
func BLAKE2b256(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// HKDFDerive derives size bytes from ikm using HKDF-SHA256 with the given
// salt and info, per RFC 5869. This is the session-keying primitive used
// by the key-exchange handshake (§3) and the onion layer (§4.11/§9).
func HKDFDerive(salt, ikm, info []byte, size int) ([]byte, error) {
	start := time.Now()
	reader := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, size)
	if _, err := io.ReadFull(reader, out); err != nil {
		metrics.CryptoErrors.WithLabelValues("derive").Inc()
		return nil, fmt.Errorf("crypto: hkdf derive: %w", err)
	}
	metrics.CryptoOperationDuration.WithLabelValues("derive", "hkdf-sha256").Observe(time.Since(start).Seconds())
	metrics.CryptoOperations.WithLabelValues("derive", "hkdf-sha256").Inc()
	return out, nil
}

// PBKDF2Iterations is the iteration count for DeriveFromPassword.
const PBKDF2Iterations = 100_000

// DeriveFromPassword derives a 32-byte key from a password and salt using
// PBKDF2-HMAC-SHA256 with 100,000 iterations.
func DeriveFromPassword(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, PBKDF2Iterations, 32, sha256.New)
}

// ConstantTimeCompare reports whether a and b are equal without leaking
// timing information beyond the initial length check, which itself must
// not short-circuit comparison of the shorter slice's bytes.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		// Still run a comparison over a zero-padded view so callers cannot
		// distinguish "wrong length" from "right length, wrong bytes" by
		// timing alone beyond the unavoidable length check itself.
		maxLen := len(a)
		if len(b) > maxLen {
			maxLen = len(b)
		}
		pa := make([]byte, maxLen)
		pb := make([]byte, maxLen)
		copy(pa, a)
		copy(pb, b)
		subtle.ConstantTimeCompare(pa, pb)
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("crypto: read random bytes: %w", err)
	}
	return b, nil
}
