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

// Package transport is the framed, authenticated, optionally encrypted
// message stream peers speak to one another: a handshake performs key
// exchange and upgrades a connection to an authenticated encrypted
// channel, after which JSON-RPC messages ride inside signed envelopes.
package transport

// EnvelopeType discriminates the three wire shapes a frame can take.
type EnvelopeType string

const (
	// EnvelopeKeyExchange carries the handshake's ephemeral public key.
	EnvelopeKeyExchange EnvelopeType = "key_exchange"
	// EnvelopeEncrypted carries an AEAD-sealed JSON-RPC message.
	EnvelopeEncrypted EnvelopeType = "encrypted"
	// EnvelopePlaintext carries a JSON-RPC message with no encryption,
	// used only when the connection was configured without encryption.
	EnvelopePlaintext EnvelopeType = "plaintext"
)

// Envelope is the wire frame exchanged between two transport endpoints.
// Exactly one of the payload fields is populated according to Type.
type Envelope struct {
	Type EnvelopeType `json:"type"`

	// key_exchange fields.
	PublicKey []byte `json:"public_key,omitempty"`
	NodeID    string `json:"node_id,omitempty"`

	// encrypted fields.
	Nonce      []byte `json:"nonce,omitempty"`
	Ciphertext []byte `json:"ciphertext,omitempty"`

	// plaintext field.
	Message []byte `json:"message,omitempty"`

	// Signature, when present, covers the canonical serialization of
	// this envelope with Signature and Sender cleared.
	Signature []byte `json:"signature,omitempty"`
	Sender    string `json:"sender,omitempty"`
}

// signingCopy returns a copy of e with Signature and Sender cleared, the
// form that gets canonically serialized and signed.
func (e *Envelope) signingCopy() *Envelope {
	cp := *e
	cp.Signature = nil
	cp.Sender = ""
	return &cp
}
