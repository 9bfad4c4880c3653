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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllCollectorsAreRegistered(t *testing.T) {
	assert.NotNil(t, HandshakesInitiated)
	assert.NotNil(t, HandshakesCompleted)
	assert.NotNil(t, HandshakesFailed)
	assert.NotNil(t, HandshakeDuration)

	assert.NotNil(t, SessionsCreated)
	assert.NotNil(t, SessionsActive)
	assert.NotNil(t, SessionsClosed)
	assert.NotNil(t, SessionDuration)
	assert.NotNil(t, SessionMessageSize)

	assert.NotNil(t, CryptoOperations)
	assert.NotNil(t, CryptoErrors)
	assert.NotNil(t, CryptoOperationDuration)

	assert.NotNil(t, MessagesProcessed)
	assert.NotNil(t, ReplayRejections)
	assert.NotNil(t, MessageProcessingDuration)
	assert.NotNil(t, MessageSize)

	assert.NotNil(t, DHTLookups)
	assert.NotNil(t, DHTLookupRounds)
	assert.NotNil(t, DHTStores)
	assert.NotNil(t, DHTRoutingTableSize)

	assert.NotNil(t, PeersKnown)
	assert.NotNil(t, PeersConnected)
	assert.NotNil(t, GossipRounds)
	assert.NotNil(t, BootstrapAttempts)
}

func TestMetrics_IncrementAndCollect(t *testing.T) {
	HandshakesInitiated.WithLabelValues("dialer").Inc()
	HandshakesCompleted.WithLabelValues("success").Inc()
	SessionsCreated.WithLabelValues("success").Inc()
	SessionsActive.Inc()
	CryptoOperations.WithLabelValues("sign", "ed25519").Inc()
	DHTLookups.WithLabelValues("find_node", "found").Inc()
	MessagesProcessed.WithLabelValues("node", "success").Inc()

	assert.NotZero(t, testutil.CollectAndCount(HandshakesInitiated))
	assert.NotZero(t, testutil.CollectAndCount(SessionsCreated))
	assert.NotZero(t, testutil.CollectAndCount(CryptoOperations))
	assert.NotZero(t, testutil.CollectAndCount(DHTLookups))
	assert.NotZero(t, testutil.CollectAndCount(MessagesProcessed))
}
