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

// Package metrics exposes a node's Prometheus collectors: transport
// sessions and handshakes, JSON-RPC message handling, cryptographic
// operations, the DHT, and gossip discovery.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "dawn"

// Registry is the process-wide collector registry; every metric in this
// package registers against it via promauto.With(Registry).
var Registry = prometheus.NewRegistry()
