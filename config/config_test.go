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

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 20, cfg.DHT.K)
	assert.Equal(t, 3, cfg.DHT.Alpha)
	assert.Equal(t, 64, cfg.Privacy.MinPaddedSize)
	assert.Equal(t, 256, cfg.Privacy.MaxPadding)
	assert.EqualValues(t, 300_000_000_000, cfg.PeerTimeout)
	assert.EqualValues(t, 60_000_000_000, cfg.AnnounceInterval)
	assert.EqualValues(t, 30_000_000_000, cfg.RPCTimeout)
}

func TestLoadFromFile_YAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	cfg := Default()
	cfg.Listen = "ws://0.0.0.0:7777"
	cfg.Bootstrap = []string{"ws://seed1:9000", "ws://seed2:9000"}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://0.0.0.0:7777", loaded.Listen)
	assert.Equal(t, []string{"ws://seed1:9000", "ws://seed2:9000"}, loaded.Bootstrap)
}

func TestLoadFromFile_JSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.json")
	cfg := Default()
	cfg.EnablePrivacy = true
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.EnablePrivacy)
}

func TestLoadFromFile_AppliesDefaultsToZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sparse.yaml")
	require.NoError(t, SaveToFile(&Config{}, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().DataDir, loaded.DataDir)
	assert.Equal(t, Default().DHT.K, loaded.DHT.K)
}

func TestLoadFromFile_MissingFileErrors(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/node.yaml")
	assert.Error(t, err)
}
