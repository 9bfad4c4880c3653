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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	dawncrypto "github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/internal/metrics"
)

// Options configures a Conn's handshake and timeout behavior.
type Options struct {
	// Encrypt, when true, requires a completed key_exchange handshake
	// before any plaintext envelope is accepted or produced. When
	// false the connection speaks plaintext envelopes only.
	Encrypt bool

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// DefaultOptions mirrors the teacher transport's timeout defaults.
func DefaultOptions() Options {
	return Options{
		Encrypt:          true,
		HandshakeTimeout: 30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     30 * time.Second,
	}
}

// Conn is one peer-to-peer framed message stream: a WebSocket connection
// plus the handshake/session state layered on top of it, per §4.3.
type Conn struct {
	ws       *websocket.Conn
	identity *dawncrypto.Identity
	opts     Options

	writeMu sync.Mutex
	sess    *session
}

// newConn wraps an already-dialed or already-upgraded WebSocket connection.
func newConn(ws *websocket.Conn, identity *dawncrypto.Identity, opts Options) (*Conn, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws, identity: identity, opts: opts, sess: sess}, nil
}

// Handshake performs the key-exchange handshake described in §4.3: the
// initiator sends its key_exchange first and waits for the responder's;
// a non-initiator reads first and then replies. Until both sides mark
// session_established, any non-handshake frame received is silently
// dropped by Receive.
func (c *Conn) Handshake(initiator bool) error {
	if !c.opts.Encrypt {
		return nil
	}

	role := "listener"
	if initiator {
		role = "dialer"
	}
	metrics.HandshakesInitiated.WithLabelValues(role).Inc()
	start := time.Now()

	if err := c.handshake(initiator); err != nil {
		metrics.HandshakesFailed.WithLabelValues(classifyHandshakeError(err)).Inc()
		return err
	}
	metrics.HandshakesCompleted.WithLabelValues("success").Inc()
	metrics.HandshakeDuration.WithLabelValues("ecdh").Observe(time.Since(start).Seconds())
	metrics.SessionsCreated.WithLabelValues("success").Inc()
	metrics.SessionsActive.Inc()
	return nil
}

func (c *Conn) handshake(initiator bool) error {
	deadline := time.Now().Add(c.opts.HandshakeTimeout)
	if err := c.ws.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("transport: set handshake read deadline: %w", err)
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("transport: set handshake write deadline: %w", err)
	}

	mine := &Envelope{
		Type:      EnvelopeKeyExchange,
		PublicKey: c.sess.ephemeral.PublicKeyBytes(),
		NodeID:    c.identity.NodeID(),
	}

	if initiator {
		if err := c.writeEnvelope(mine); err != nil {
			return err
		}
		peer, err := c.readHandshakeEnvelope()
		if err != nil {
			return err
		}
		return c.sess.complete(peer.NodeID, peer.PublicKey)
	}

	peer, err := c.readHandshakeEnvelope()
	if err != nil {
		return err
	}
	if err := c.writeEnvelope(mine); err != nil {
		return err
	}
	return c.sess.complete(peer.NodeID, peer.PublicKey)
}

// classifyHandshakeError buckets a handshake failure for metrics. It's a
// best-effort classification based on the wrapped error text since the
// underlying websocket/net errors aren't sentinel values we can compare
// directly.
func classifyHandshakeError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "signature") || strings.Contains(msg, "verify"):
		return "bad_signature"
	default:
		return "network"
	}
}

func (c *Conn) readHandshakeEnvelope() (*Envelope, error) {
	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			return nil, fmt.Errorf("transport: handshake read: %w", err)
		}
		if env.Type != EnvelopeKeyExchange {
			continue
		}
		return &env, nil
	}
}

// Send serializes message as a JSON-RPC frame, encrypts it (if this
// connection requires encryption), wraps it in a signed envelope, and
// writes it to the wire.
func (c *Conn) Send(message []byte) error {
	var env *Envelope
	if c.opts.Encrypt {
		if !c.sess.isEstablished() {
			return fmt.Errorf("transport: send before session established")
		}
		nonce, ciphertext, err := dawncrypto.Seal(c.sess.key(), message, []byte(c.sess.remotePeerID()))
		if err != nil {
			return fmt.Errorf("transport: seal message: %w", err)
		}
		env = &Envelope{Type: EnvelopeEncrypted, Nonce: nonce, Ciphertext: ciphertext}
	} else {
		env = &Envelope{Type: EnvelopePlaintext, Message: message}
	}

	signed, err := c.sign(env)
	if err != nil {
		return fmt.Errorf("transport: sign envelope: %w", err)
	}
	metrics.SessionMessageSize.WithLabelValues("outbound").Observe(float64(len(message)))
	return c.writeEnvelope(signed)
}

// Receive blocks until a data envelope arrives, verifying its signature
// and decrypting it as needed. Handshake frames and frames that fail
// verification before the session is established are silently dropped,
// per §4.3 step 3.
func (c *Conn) Receive() ([]byte, error) {
	for {
		var env Envelope
		if err := c.ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
			return nil, fmt.Errorf("transport: set read deadline: %w", err)
		}
		if err := c.ws.ReadJSON(&env); err != nil {
			return nil, fmt.Errorf("transport: read: %w", err)
		}

		if env.Type == EnvelopeKeyExchange {
			continue
		}
		if c.opts.Encrypt && !c.sess.isEstablished() {
			continue
		}

		if err := c.verify(&env); err != nil {
			continue
		}

		switch env.Type {
		case EnvelopeEncrypted:
			plaintext, err := dawncrypto.Open(c.sess.key(), env.Nonce, env.Ciphertext, []byte(c.identity.NodeID()))
			if err != nil {
				continue
			}
			metrics.SessionMessageSize.WithLabelValues("inbound").Observe(float64(len(plaintext)))
			return plaintext, nil
		case EnvelopePlaintext:
			metrics.SessionMessageSize.WithLabelValues("inbound").Observe(float64(len(env.Message)))
			return env.Message, nil
		default:
			continue
		}
	}
}

func (c *Conn) sign(env *Envelope) (*Envelope, error) {
	canonical, err := json.Marshal(env.signingCopy())
	if err != nil {
		return nil, err
	}
	sig, err := c.identity.Sign(canonical)
	if err != nil {
		return nil, err
	}
	signed := *env
	signed.Signature = sig
	signed.Sender = c.identity.NodeID()
	return &signed, nil
}

func (c *Conn) verify(env *Envelope) error {
	if len(env.Signature) == 0 || env.Sender == "" {
		return fmt.Errorf("transport: unsigned envelope")
	}
	senderPub, err := hex.DecodeString(env.Sender)
	if err != nil {
		return fmt.Errorf("transport: sender node_id is not hex: %w", err)
	}
	remote, err := dawncrypto.NewRemoteIdentity(senderPub)
	if err != nil {
		return err
	}
	canonical, err := json.Marshal(env.signingCopy())
	if err != nil {
		return err
	}
	return remote.Verify(canonical, env.Signature)
}

func (c *Conn) writeEnvelope(env *Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("transport: set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(env); err != nil {
		return fmt.Errorf("transport: write envelope: %w", err)
	}
	return nil
}

// Close sends a normal-closure control frame and closes the underlying
// WebSocket connection.
func (c *Conn) Close() error {
	if c.opts.Encrypt && c.sess.isEstablished() {
		metrics.SessionsClosed.WithLabelValues("graceful").Inc()
		metrics.SessionsActive.Dec()
	}
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}

// RemoteNodeID returns the peer node id learned during the handshake, or
// the empty string if encryption is disabled or the handshake has not
// completed.
func (c *Conn) RemoteNodeID() string {
	return c.sess.remotePeerID()
}
