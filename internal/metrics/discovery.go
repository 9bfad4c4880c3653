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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PeersKnown tracks the size of the peer registry.
	PeersKnown = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "peers_known",
			Help:      "Total number of peers known to the registry",
		},
	)

	// PeersConnected tracks currently connected peers.
	PeersConnected = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "peers_connected",
			Help:      "Number of peers currently connected",
		},
	)

	// GossipRounds tracks completed gossip announcement rounds.
	GossipRounds = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "gossip_rounds_total",
			Help:      "Total number of gossip announcement rounds",
		},
		[]string{"direction"}, // sent, received
	)

	// BootstrapAttempts tracks bootstrap discovery attempts by outcome.
	BootstrapAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "bootstrap_attempts_total",
			Help:      "Total number of bootstrap discovery attempts",
		},
		[]string{"outcome"}, // reachable, unreachable
	)
)
