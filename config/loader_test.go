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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FallsBackToDefaultsWithNoConfigDir(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir(), DotEnvPath: ""})
	require.NoError(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestLoad_PrefersEnvironmentSpecificFile(t *testing.T) {
	dir := t.TempDir()
	prod := Default()
	prod.Listen = "ws://prod:9000"
	require.NoError(t, SaveToFile(prod, filepath.Join(dir, "production.yaml")))

	def := Default()
	def.Listen = "ws://default:9000"
	require.NoError(t, SaveToFile(def, filepath.Join(dir, "default.yaml")))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "production"})
	require.NoError(t, err)
	assert.Equal(t, "ws://prod:9000", cfg.Listen)
}

func TestLoad_EnvironmentOverrideWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	base := Default()
	base.Listen = "ws://from-file:9000"
	require.NoError(t, SaveToFile(base, filepath.Join(dir, "default.yaml")))

	t.Setenv("DAWN_LISTEN", "ws://from-env:9000")
	cfg, err := Load(LoaderOptions{ConfigDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "ws://from-env:9000", cfg.Listen)
}

func TestMustLoad_PanicsOnUnreadableDotEnv(t *testing.T) {
	dir := t.TempDir()
	// A directory at the .env path can be statted but not parsed as a
	// dotenv file, forcing godotenv.Load to error.
	dotEnvDir := filepath.Join(dir, ".env")
	require.NoError(t, os.MkdirAll(dotEnvDir, 0755))

	assert.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: dir, DotEnvPath: dotEnvDir})
	})
}
