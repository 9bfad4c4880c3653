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

package privacy

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	dawncrypto "github.com/dawn-network/node/crypto"
	"github.com/dawn-network/node/crypto/keys"
)

// onionSalt is a fixed HKDF salt distinct from the transport handshake's
// salt, so a layer key can never be confused with a session key even if
// the same ECDH shared secret were somehow reused.
const onionSalt = "project-dawn-v2-onion-layer"

// Hop is one node along an onion path: its id and the X25519 public key
// used to derive that hop's layer key. Unlike the source this models
// replaces (§9), the key here is real: every hop can decrypt its own
// layer because the layer key is HKDF(ECDH(circuit_ephemeral, hop_pub)),
// not an unrelated random key.
type Hop struct {
	NodeID          string
	X25519PublicKey []byte
}

// Layer is one onion layer as it appears on the wire: the circuit's
// ephemeral public key (the same value at every layer, so each hop can
// independently recompute its own shared secret) plus the AEAD-sealed
// inner content.
type Layer struct {
	EphemeralPublicKey []byte `json:"ephemeral_public_key"`
	Nonce              []byte `json:"nonce"`
	Ciphertext         []byte `json:"ciphertext"`
}

// wireContent is the plaintext revealed by peeling one layer.
type wireContent struct {
	NextHop string          `json:"next_hop,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// OnionRouter builds and peels onion-encrypted message layers.
type OnionRouter struct{}

// NewOnionRouter creates an OnionRouter.
func NewOnionRouter() *OnionRouter {
	return &OnionRouter{}
}

// Build wraps paddedMessage in one onion layer per hop in path (the last
// entry being the final destination) and returns the outermost Layer to
// send to path[0].
func (r *OnionRouter) Build(path []Hop, paddedMessage []byte) (*Layer, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("privacy: onion path must have at least one hop")
	}

	ephemeral, err := keys.GenerateX25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("privacy: generate circuit ephemeral key: %w", err)
	}
	ephemeralPub := ephemeral.PublicKeyBytes()

	// Innermost layer: the final hop's plaintext holds the padded
	// message, hex-encoded, with no next_hop.
	finalPayload, err := json.Marshal(hex.EncodeToString(paddedMessage))
	if err != nil {
		return nil, err
	}
	content := wireContent{Payload: finalPayload}

	var layer *Layer
	for i := len(path) - 1; i >= 0; i-- {
		hop := path[i]
		plaintext, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}

		key, err := layerKey(ephemeral, hop)
		if err != nil {
			return nil, err
		}
		nonce, ciphertext, err := dawncrypto.Seal(key, plaintext, []byte(hop.NodeID))
		if err != nil {
			return nil, fmt.Errorf("privacy: seal onion layer for hop %s: %w", hop.NodeID, err)
		}
		layer = &Layer{EphemeralPublicKey: ephemeralPub, Nonce: nonce, Ciphertext: ciphertext}

		if i > 0 {
			wrapped, err := json.Marshal(layer)
			if err != nil {
				return nil, err
			}
			content = wireContent{NextHop: hop.NodeID, Payload: wrapped}
		}
	}
	return layer, nil
}

func layerKey(ephemeral *keys.X25519KeyPair, hop Hop) ([]byte, error) {
	shared, err := ephemeral.ECDH(hop.X25519PublicKey)
	if err != nil {
		return nil, fmt.Errorf("privacy: ecdh with hop %s: %w", hop.NodeID, err)
	}
	return dawncrypto.HKDFDerive([]byte(onionSalt), shared, []byte(hop.NodeID), 32)
}

// PeelResult is the outcome of peeling one onion layer.
type PeelResult struct {
	// NextHop is the node id to forward Payload to. Empty when this
	// layer was the final hop's.
	NextHop string
	// Payload is either the next (still-encrypted) Layer, serialized,
	// when NextHop is set, or the recovered padded message bytes when
	// this was the final layer.
	Payload []byte
	// Final reports whether Payload is the recovered padded message
	// (true) or a serialized inner Layer to forward (false).
	Final bool
}

// Peel decrypts one onion layer using this hop's own X25519 private key
// (myKeyPair) and node id (used as AAD, matching how Build sealed it).
func (r *OnionRouter) Peel(myKeyPair *keys.X25519KeyPair, myNodeID string, layer *Layer) (*PeelResult, error) {
	shared, err := myKeyPair.ECDH(layer.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("privacy: ecdh with circuit ephemeral key: %w", err)
	}
	key, err := dawncrypto.HKDFDerive([]byte(onionSalt), shared, []byte(myNodeID), 32)
	if err != nil {
		return nil, err
	}

	plaintext, err := dawncrypto.Open(key, layer.Nonce, layer.Ciphertext, []byte(myNodeID))
	if err != nil {
		return nil, fmt.Errorf("privacy: peel onion layer: %w", err)
	}

	var content wireContent
	if err := json.Unmarshal(plaintext, &content); err != nil {
		return nil, fmt.Errorf("privacy: decode peeled layer: %w", err)
	}

	if content.NextHop == "" {
		var hexPayload string
		if err := json.Unmarshal(content.Payload, &hexPayload); err != nil {
			return nil, fmt.Errorf("privacy: decode final payload: %w", err)
		}
		padded, err := hex.DecodeString(hexPayload)
		if err != nil {
			return nil, fmt.Errorf("privacy: final payload is not hex: %w", err)
		}
		return &PeelResult{Payload: padded, Final: true}, nil
	}

	var inner Layer
	if err := json.Unmarshal(content.Payload, &inner); err != nil {
		return nil, fmt.Errorf("privacy: decode inner layer: %w", err)
	}
	forward, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return &PeelResult{NextHop: content.NextHop, Payload: forward, Final: false}, nil
}
