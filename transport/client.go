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
	"fmt"

	"github.com/gorilla/websocket"

	dawncrypto "github.com/dawn-network/node/crypto"
)

// Dial opens a WebSocket connection to addr (a ws:// or wss:// URL),
// performs the key-exchange handshake as the initiator, and returns an
// established Conn ready for Send/Receive.
func Dial(ctx context.Context, addr string, identity *dawncrypto.Identity, opts Options) (*Conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s failed (HTTP %d): %w", addr, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("transport: dial %s failed: %w", addr, err)
	}

	conn, err := newConn(ws, identity, opts)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	if err := conn.Handshake(true); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return conn, nil
}
