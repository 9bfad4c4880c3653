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

// Package config provides configuration management for a Project Dawn
// node: YAML-on-disk, environment-variable substitution and override,
// and sane defaults for every subsystem.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DHTConfig tunes the Kademlia parameters; both default to the spec's
// K=20/alpha=3 and are only ever overridden in tests.
type DHTConfig struct {
	K     int `yaml:"k" json:"k"`
	Alpha int `yaml:"alpha" json:"alpha"`
}

// PrivacyConfig tunes message padding, onion routing, and timing
// obfuscation, independent of whether the privacy layer is enabled.
type PrivacyConfig struct {
	MinPaddedSize int `yaml:"min_padded_size" json:"min_padded_size"`
	MaxPadding    int `yaml:"max_padding" json:"max_padding"`
	MinDelayMS    int `yaml:"min_delay_ms" json:"min_delay_ms"`
	MaxDelayMS    int `yaml:"max_delay_ms" json:"max_delay_ms"`
	BatchWindowMS int `yaml:"batch_window_ms" json:"batch_window_ms"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
	Path    string `yaml:"path" json:"path"`
}

// IdentityConfig selects where the node's Ed25519 identity key is stored.
// Backend "file" (the default) keeps it under DataDir/keys; "postgres"
// keeps it in a shared database instead, for operators running several
// node processes against one identity store.
type IdentityConfig struct {
	Backend  string `yaml:"backend" json:"backend"`
	Postgres struct {
		Host     string `yaml:"host" json:"host"`
		Port     int    `yaml:"port" json:"port"`
		User     string `yaml:"user" json:"user"`
		Password string `yaml:"password" json:"password"`
		Database string `yaml:"database" json:"database"`
		SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
	} `yaml:"postgres" json:"postgres"`
}

// Config is a node's complete configuration, loadable from YAML with
// environment-variable overrides per §3.
type Config struct {
	Listen    string        `yaml:"listen" json:"listen"`
	Bootstrap []string      `yaml:"bootstrap" json:"bootstrap"`

	EnableDHT     bool `yaml:"enable_dht" json:"enable_dht"`
	EnablePrivacy bool `yaml:"enable_privacy" json:"enable_privacy"`
	EnableMDNS    bool `yaml:"enable_mdns" json:"enable_mdns"`

	DataDir  string `yaml:"data_dir" json:"data_dir"`
	LogLevel string `yaml:"log_level" json:"log_level"`

	PeerTimeout      time.Duration `yaml:"peer_timeout" json:"peer_timeout"`
	AnnounceInterval time.Duration `yaml:"announce_interval" json:"announce_interval"`
	RPCTimeout       time.Duration `yaml:"rpc_timeout" json:"rpc_timeout"`

	DHT      DHTConfig      `yaml:"dht" json:"dht"`
	Privacy  PrivacyConfig  `yaml:"privacy" json:"privacy"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Identity IdentityConfig `yaml:"identity" json:"identity"`
}

// Default returns a Config with every field set to its spec default.
func Default() *Config {
	return &Config{
		Listen:           "ws://0.0.0.0:9000",
		EnableDHT:        true,
		EnableMDNS:       true,
		DataDir:          ".dawn",
		LogLevel:         "info",
		PeerTimeout:      300 * time.Second,
		AnnounceInterval: 60 * time.Second,
		RPCTimeout:       30 * time.Second,
		DHT:              DHTConfig{K: 20, Alpha: 3},
		Privacy: PrivacyConfig{
			MinPaddedSize: 64,
			MaxPadding:    256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9100",
			Path:    "/metrics",
		},
		Identity: IdentityConfig{Backend: "file"},
	}
}

func setDefaults(cfg *Config) {
	d := Default()
	if cfg.Listen == "" {
		cfg.Listen = d.Listen
	}
	if cfg.DataDir == "" {
		cfg.DataDir = d.DataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.LogLevel
	}
	if cfg.PeerTimeout == 0 {
		cfg.PeerTimeout = d.PeerTimeout
	}
	if cfg.AnnounceInterval == 0 {
		cfg.AnnounceInterval = d.AnnounceInterval
	}
	if cfg.RPCTimeout == 0 {
		cfg.RPCTimeout = d.RPCTimeout
	}
	if cfg.DHT.K == 0 {
		cfg.DHT.K = d.DHT.K
	}
	if cfg.DHT.Alpha == 0 {
		cfg.DHT.Alpha = d.DHT.Alpha
	}
	if cfg.Privacy.MinPaddedSize == 0 {
		cfg.Privacy.MinPaddedSize = d.Privacy.MinPaddedSize
	}
	if cfg.Privacy.MaxPadding == 0 {
		cfg.Privacy.MaxPadding = d.Privacy.MaxPadding
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = d.Metrics.Listen
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = d.Metrics.Path
	}
	if cfg.Identity.Backend == "" {
		cfg.Identity.Backend = d.Identity.Backend
	}
}

// LoadFromFile loads configuration from a YAML (or, by extension, JSON)
// file and applies defaults to any field left unset.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := &Config{}
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile serializes cfg to path, choosing JSON or YAML by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
