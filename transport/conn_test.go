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

package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dawncrypto "github.com/dawn-network/node/crypto"
)

func newTestIdentity(t *testing.T) *dawncrypto.Identity {
	t.Helper()
	id, err := dawncrypto.NewIdentity()
	require.NoError(t, err)
	return id
}

func TestConn_HandshakeAndEncryptedRoundTrip(t *testing.T) {
	serverIdentity := newTestIdentity(t)
	clientIdentity := newTestIdentity(t)

	received := make(chan []byte, 1)
	server := NewServer(serverIdentity, DefaultOptions(), func(conn *Conn) {
		msg, err := conn.Receive()
		if err != nil {
			return
		}
		received <- msg
		_ = conn.Send([]byte(`{"jsonrpc":"2.0","result":"ack","id":1}`))
	})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL, clientIdentity, DefaultOptions())
	require.NoError(t, err)
	defer client.Close()

	require.Equal(t, serverIdentity.NodeID(), client.RemoteNodeID())

	request := []byte(`{"jsonrpc":"2.0","method":"node/ping","id":1}`)
	require.NoError(t, client.Send(request))

	select {
	case got := <-received:
		require.Equal(t, request, got)
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the message")
	}

	reply, err := client.Receive()
	require.NoError(t, err)
	require.Contains(t, string(reply), "ack")
}

func TestConn_PlaintextModeSkipsHandshake(t *testing.T) {
	serverIdentity := newTestIdentity(t)
	clientIdentity := newTestIdentity(t)
	opts := DefaultOptions()
	opts.Encrypt = false

	received := make(chan []byte, 1)
	server := NewServer(serverIdentity, opts, func(conn *Conn) {
		msg, err := conn.Receive()
		if err != nil {
			return
		}
		received <- msg
	})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL, clientIdentity, opts)
	require.NoError(t, err)
	defer client.Close()

	require.Empty(t, client.RemoteNodeID())

	require.NoError(t, client.Send([]byte("plain payload")))
	select {
	case got := <-received:
		require.Equal(t, "plain payload", string(got))
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the message")
	}
}
