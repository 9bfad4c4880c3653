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

package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dawn-network/node/crypto"
)

// freeListenAddr asks the OS for an unused TCP port and formats it as a
// ws:// address, mirroring how a real deployment derives Address from an
// ephemeral bind.
func freeListenAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "ws://" + addr
}

func TestServer_StartAndStopBringsUpAndTearsDownListener(t *testing.T) {
	identity, err := crypto.NewIdentity()
	require.NoError(t, err)

	srv := NewServer(identity, ServerConfig{
		Address:    freeListenAddr(t),
		EnableDHT:  true,
		EnableMDNS: false,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))

	// Give the listener goroutine a moment to bind before probing it.
	time.Sleep(50 * time.Millisecond)
	conn, err := net.DialTimeout("tcp", srv.httpServer.Addr, time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, srv.Stop(stopCtx))
}

func TestServer_SecondNodeLearnsFirstViaBootstrap(t *testing.T) {
	aIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)
	bIdentity, err := crypto.NewIdentity()
	require.NoError(t, err)

	aAddr := freeListenAddr(t)
	a := NewServer(aIdentity, ServerConfig{Address: aAddr, AnnounceInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer a.Stop(context.Background())
	time.Sleep(50 * time.Millisecond)

	b := NewServer(bIdentity, ServerConfig{
		Address:          freeListenAddr(t),
		Bootstrap:        []string{aAddr},
		AnnounceInterval: time.Hour,
	})
	require.NoError(t, b.Start(ctx))
	defer b.Stop(context.Background())

	_, ok := b.Peers.Get(aIdentity.NodeID())
	require.True(t, ok, "expected bootstrap to learn node A's id")
}
