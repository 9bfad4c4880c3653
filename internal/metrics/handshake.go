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
	// HandshakesInitiated tracks key-exchange handshakes started.
	HandshakesInitiated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "initiated_total",
			Help:      "Total number of key-exchange handshakes initiated",
		},
		[]string{"role"}, // dialer, listener
	)

	// HandshakesCompleted tracks completed handshakes.
	HandshakesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "completed_total",
			Help:      "Total number of handshakes completed",
		},
		[]string{"status"}, // success, failure
	)

	// HandshakesFailed tracks failed handshakes by error type.
	HandshakesFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "failed_total",
			Help:      "Total number of failed handshakes by error type",
		},
		[]string{"error_type"}, // timeout, bad_signature, network
	)

	// HandshakeDuration tracks handshake stage durations.
	HandshakeDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handshakes",
			Name:      "duration_seconds",
			Help:      "Handshake stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 4s
		},
		[]string{"stage"}, // ecdh, derive, verify
	)
)
