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
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	dawncrypto "github.com/dawn-network/node/crypto"
)

// ConnHandler processes one freshly-established inbound connection. It
// owns conn for the lifetime of the peer session and should loop calling
// Receive until it errors, then return.
type ConnHandler func(conn *Conn)

// Server accepts inbound WebSocket connections, performs the responder
// side of the key-exchange handshake, and hands each established Conn to
// a ConnHandler.
type Server struct {
	identity *dawncrypto.Identity
	opts     Options
	handler  ConnHandler
	upgrader websocket.Upgrader
}

// NewServer creates a Server. handler is invoked on its own goroutine
// for every successfully upgraded and handshaken connection.
func NewServer(identity *dawncrypto.Identity, opts Options, handler ConnHandler) *Server {
	return &Server{
		identity: identity,
		opts:     opts,
		handler:  handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the http.Handler to mount on the node's listen address;
// node.Server serves it at the root path.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("transport: upgrade failed: %v", err), http.StatusBadRequest)
			return
		}

		conn, err := newConn(ws, s.identity, s.opts)
		if err != nil {
			_ = ws.Close()
			return
		}
		if err := conn.Handshake(false); err != nil {
			_ = ws.Close()
			return
		}

		go s.handler(conn)
	})
}
