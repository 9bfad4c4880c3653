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

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dawn-network/node/config"
	"github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/crypto/storage"
	"github.com/dawn-network/node/crypto/storage/postgres"
)

const identityKeyID = "identity"

// openKeyStorage opens the key storage backend named by cfg: the file
// store under dataDir/keys, or a Postgres-backed one when cfg.Backend is
// "postgres".
func openKeyStorage(dataDir string, cfg config.IdentityConfig) (crypto.KeyStorage, error) {
	if cfg.Backend == "postgres" {
		pgCfg := postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}
		return postgres.NewKeyStore(context.Background(), &pgCfg)
	}
	return storage.NewFileKeyStorage(filepath.Join(dataDir, "keys"))
}

// loadOrCreateIdentity opens the node's persisted Ed25519 seed through the
// configured key storage backend, generating and storing a fresh one on
// first run.
func loadOrCreateIdentity(dataDir string, idCfg config.IdentityConfig) (*crypto.Identity, bool, error) {
	keyStore, err := openKeyStorage(dataDir, idCfg)
	if err != nil {
		return nil, false, fmt.Errorf("open key storage: %w", err)
	}

	kp, err := keyStore.Load(identityKeyID)
	if err == nil {
		return &crypto.Identity{KeyPair: kp}, false, nil
	}
	if !errors.Is(err, crypto.ErrKeyNotFound) {
		return nil, false, fmt.Errorf("load identity: %w", err)
	}

	identity, err := crypto.NewIdentity()
	if err != nil {
		return nil, false, fmt.Errorf("generate identity: %w", err)
	}
	if err := keyStore.Store(identityKeyID, identity.KeyPair); err != nil {
		return nil, false, fmt.Errorf("persist identity: %w", err)
	}
	return identity, true, nil
}
