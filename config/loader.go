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
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config).
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// DotEnvPath is loaded into the process environment before any
	// other step, if it exists; a missing file is not an error.
	DotEnvPath string
	// SkipEnvSubstitution disables ${VAR} substitution.
	SkipEnvSubstitution bool
}

// DefaultLoaderOptions returns default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:  "config",
		DotEnvPath: ".env",
	}
}

// Load loads configuration with automatic environment detection: a
// .env file (if present) seeds the process environment, then
// config/<environment>.yaml or config/default.yaml is read and
// defaulted, then ${VAR} substitution runs, then DAWN_*-prefixed
// overrides apply with the highest priority.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	if options.DotEnvPath != "" {
		if _, err := os.Stat(options.DotEnvPath); err == nil {
			if err := godotenv.Load(options.DotEnvPath); err != nil {
				return nil, fmt.Errorf("config: load .env: %w", err)
			}
		}
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadFirstExisting(
		filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env)),
		filepath.Join(options.ConfigDir, "default.yaml"),
		filepath.Join(options.ConfigDir, "config.yaml"),
	)
	if err != nil {
		cfg = Default()
	}

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	return cfg, nil
}

func loadFirstExisting(paths ...string) (*Config, error) {
	var lastErr error
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			lastErr = err
			continue
		}
		return LoadFromFile(path)
	}
	return nil, lastErr
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}
