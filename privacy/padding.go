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

// Package privacy is the traffic-analysis-resistant framing layer:
// message padding, per-hop-keyed onion routing, and timing obfuscation,
// composed by PrivacyLayer.Send/Receive around the router's plaintext
// JSON-RPC payloads.
package privacy

import (
	"encoding/binary"
	"fmt"
	"math/rand"

	dawncrypto "github.com/dawn-network/node/crypto"
)

// ErrInvalidPadding is returned when Unpad cannot recover a consistent
// length-prefixed payload.
var ErrInvalidPadding = fmt.Errorf("privacy: invalid padding")

// MessagePadder pads messages to obscure their true length on the wire.
type MessagePadder struct {
	// MinSize is the minimum padded frame size; payloads shorter than
	// this are padded up to at least MinSize.
	MinSize int
	// MaxPadding bounds the random padding added beyond the payload.
	MaxPadding int
}

// NewMessagePadder creates a padder with the spec's defaults.
func NewMessagePadder() *MessagePadder {
	return &MessagePadder{MinSize: 64, MaxPadding: 256}
}

// Pad frames message as [u32 BE length][message][random padding].
func (p *MessagePadder) Pad(message []byte) ([]byte, error) {
	var padLen int
	if len(message) < p.MinSize {
		extra, err := randIntn(p.MaxPadding)
		if err != nil {
			return nil, err
		}
		padLen = p.MinSize - len(message) + extra
	} else {
		jitterBound := p.MaxPadding
		if v := len(message) / 10; v < jitterBound {
			jitterBound = v
		}
		extra, err := randIntn(jitterBound + 1)
		if err != nil {
			return nil, err
		}
		padLen = extra
	}

	padding, err := dawncrypto.RandomBytes(padLen)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 4+len(message)+len(padding))
	binary.BigEndian.PutUint32(out[:4], uint32(len(message)))
	copy(out[4:], message)
	copy(out[4+len(message):], padding)
	return out, nil
}

// Unpad reads the length prefix and returns the original message,
// failing with ErrInvalidPadding if the prefix is inconsistent with the
// frame's actual size.
func (p *MessagePadder) Unpad(framed []byte) ([]byte, error) {
	if len(framed) < 4 {
		return nil, ErrInvalidPadding
	}
	length := binary.BigEndian.Uint32(framed[:4])
	payloadLen := uint32(len(framed) - 4)
	if length > payloadLen {
		return nil, ErrInvalidPadding
	}
	return framed[4 : 4+length], nil
}

func randIntn(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	return rand.Intn(n), nil
}
