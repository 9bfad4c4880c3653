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
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		value := os.Getenv(parts[1])
		if value == "" && len(parts) > 2 {
			return parts[2]
		}
		return value
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment variables
// across every string field of cfg that plausibly carries one.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Listen = SubstituteEnvVars(cfg.Listen)
	cfg.DataDir = SubstituteEnvVars(cfg.DataDir)
	cfg.LogLevel = SubstituteEnvVars(cfg.LogLevel)
	cfg.Metrics.Listen = SubstituteEnvVars(cfg.Metrics.Listen)
	cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)
	for i, addr := range cfg.Bootstrap {
		cfg.Bootstrap[i] = SubstituteEnvVars(addr)
	}
}

// applyEnvironmentOverrides overrides cfg with DAWN_*-prefixed
// environment variables, the highest-priority layer per §3.
// PROJECT_DAWN_HOST and PROJECT_DAWN_WS_PORT replace the host and port of
// the listen address; DAWN_LISTEN, when set, replaces it whole.
func applyEnvironmentOverrides(cfg *Config) {
	host, port := os.Getenv("PROJECT_DAWN_HOST"), os.Getenv("PROJECT_DAWN_WS_PORT")
	if host != "" || port != "" {
		if u, err := url.Parse(cfg.Listen); err == nil {
			if host == "" {
				host = u.Hostname()
			}
			if port == "" {
				port = u.Port()
			}
			u.Host = net.JoinHostPort(host, port)
			cfg.Listen = u.String()
		}
	}
	if v := os.Getenv("DAWN_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("DAWN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DAWN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DAWN_BOOTSTRAP"); v != "" {
		cfg.Bootstrap = strings.Split(v, ",")
	}
	if v, ok := parseBool(os.Getenv("DAWN_ENABLE_DHT")); ok {
		cfg.EnableDHT = v
	}
	if v, ok := parseBool(os.Getenv("DAWN_ENABLE_PRIVACY")); ok {
		cfg.EnablePrivacy = v
	}
	if v, ok := parseBool(os.Getenv("DAWN_ENABLE_MDNS")); ok {
		cfg.EnableMDNS = v
	}
	if v, ok := parseDuration(os.Getenv("DAWN_RPC_TIMEOUT")); ok {
		cfg.RPCTimeout = v
	}
	if v, ok := parseBool(os.Getenv("DAWN_METRICS_ENABLED")); ok {
		cfg.Metrics.Enabled = v
	}
	if v := os.Getenv("DAWN_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
}

func parseBool(s string) (bool, bool) {
	if s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	return v, err == nil
}

func parseDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	v, err := time.ParseDuration(s)
	return v, err == nil
}

// GetEnvironment returns the current deployment environment from
// DAWN_ENV, falling back to ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("DAWN_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether the current environment is production.
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment reports whether the current environment is development
// or local.
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
