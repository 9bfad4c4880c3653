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
	// DHTLookups tracks iterative FIND_NODE/FIND_VALUE lookups.
	DHTLookups = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "lookups_total",
			Help:      "Total number of DHT lookups performed",
		},
		[]string{"kind", "outcome"}, // find_node/find_value, found/exhausted
	)

	// DHTLookupRounds tracks how many iterative rounds a lookup took.
	DHTLookupRounds = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "lookup_rounds",
			Help:      "Number of iterative rounds per DHT lookup",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
	)

	// DHTStores tracks dht_store operations, local and remote.
	DHTStores = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "stores_total",
			Help:      "Total number of DHT store operations",
		},
		[]string{"scope"}, // local, remote
	)

	// DHTRoutingTableSize tracks the number of known contacts.
	DHTRoutingTableSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "routing_table_size",
			Help:      "Number of contacts currently in the routing table",
		},
	)
)
