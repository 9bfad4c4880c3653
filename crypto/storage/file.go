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

package storage

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	dawncrypto "github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/crypto/keys"
)

// fileKeyStorage persists Ed25519 key pairs as hex-encoded 32-byte seeds,
// one file per id, under dir. This is the normative identity backend
// described in the spec's "Persisted state" section: atomic temp-file +
// rename, 0600 permissions where the OS supports it.
type fileKeyStorage struct {
	dir string
	mu  sync.RWMutex
}

// NewFileKeyStorage creates a key storage rooted at dir, creating it if
// necessary.
func NewFileKeyStorage(dir string) (dawncrypto.KeyStorage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("storage: create key dir: %w", err)
	}
	return &fileKeyStorage{dir: dir}, nil
}

func (s *fileKeyStorage) path(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".key")
}

func sanitizeID(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
}

// Store writes keyPair's 32-byte seed atomically: write to a temp file,
// fsync, then rename over the destination.
func (s *fileKeyStorage) Store(id string, keyPair dawncrypto.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeder, ok := keyPair.(interface{ Seed() ([]byte, error) })
	if !ok {
		return fmt.Errorf("storage: key pair for %q has no exportable seed", id)
	}
	seed, err := seeder.Seed()
	if err != nil {
		return err
	}

	dest := s.path(id)
	tmp := dest + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("storage: open temp file: %w", err)
	}
	if _, err := f.WriteString(hex.EncodeToString(seed)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: rename temp file: %w", err)
	}
	return nil
}

// Load reads and reconstructs the Ed25519 key pair stored under id.
func (s *fileKeyStorage) Load(id string) (dawncrypto.KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dawncrypto.ErrKeyNotFound
		}
		return nil, fmt.Errorf("storage: read key file: %w", err)
	}
	seed, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("storage: decode seed: %w", err)
	}
	return keys.NewEd25519KeyPairFromSeed(seed)
}

// Delete removes the key file for id.
func (s *fileKeyStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return dawncrypto.ErrKeyNotFound
		}
		return fmt.Errorf("storage: delete key file: %w", err)
	}
	return nil
}

// List returns all stored key ids, sorted.
func (s *fileKeyStorage) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: read key dir: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".key") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".key"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether a key file exists for id.
func (s *fileKeyStorage) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(id))
	return err == nil
}
