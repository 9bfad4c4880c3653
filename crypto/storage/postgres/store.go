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

// Package postgres is an optional durable backend for a node's identity
// KeyStorage, selected with `identity.backend: postgres` in the node's
// config file. The normative
// backend is the file-based one in crypto/storage; this exists for
// operators who already run the node's peer data alongside a Postgres
// instance and want a single place to manage identity material.
package postgres

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	dawncrypto "github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/crypto/keys"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// KeyStore implements crypto.KeyStorage backed by a `node_keys` table.
type KeyStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS node_keys (
	id         TEXT PRIMARY KEY,
	seed_hex   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewKeyStore opens a connection pool and ensures the backing table exists.
func NewKeyStore(ctx context.Context, cfg *Config) (*KeyStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return &KeyStore{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (s *KeyStore) Close() {
	s.pool.Close()
}

// Store upserts keyPair's seed under id.
func (s *KeyStore) Store(id string, keyPair dawncrypto.KeyPair) error {
	seeder, ok := keyPair.(interface{ Seed() ([]byte, error) })
	if !ok {
		return fmt.Errorf("postgres: key pair for %q has no exportable seed", id)
	}
	seed, err := seeder.Seed()
	if err != nil {
		return err
	}
	ctx := context.Background()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO node_keys (id, seed_hex) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET seed_hex = EXCLUDED.seed_hex`,
		id, hex.EncodeToString(seed))
	if err != nil {
		return fmt.Errorf("postgres: store key: %w", err)
	}
	return nil
}

// Load reconstructs the Ed25519 key pair stored under id.
func (s *KeyStore) Load(id string) (dawncrypto.KeyPair, error) {
	ctx := context.Background()
	var seedHex string
	err := s.pool.QueryRow(ctx, `SELECT seed_hex FROM node_keys WHERE id = $1`, id).Scan(&seedHex)
	if err != nil {
		return nil, dawncrypto.ErrKeyNotFound
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("postgres: decode seed: %w", err)
	}
	return keys.NewEd25519KeyPairFromSeed(seed)
}

// Delete removes the row for id.
func (s *KeyStore) Delete(id string) error {
	ctx := context.Background()
	tag, err := s.pool.Exec(ctx, `DELETE FROM node_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dawncrypto.ErrKeyNotFound
	}
	return nil
}

// List returns all stored key ids.
func (s *KeyStore) List() ([]string, error) {
	ctx := context.Background()
	rows, err := s.pool.Query(ctx, `SELECT id FROM node_keys ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list keys: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists reports whether a key row exists for id.
func (s *KeyStore) Exists(id string) bool {
	ctx := context.Background()
	var exists bool
	_ = s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM node_keys WHERE id = $1)`, id).Scan(&exists)
	return exists
}
