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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagePadder_ShortMessagePaddedToMinSize(t *testing.T) {
	p := NewMessagePadder()
	msg := []byte("hi")

	framed, err := p.Pad(msg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(framed), 4+p.MinSize)
	assert.LessOrEqual(t, len(framed), 4+p.MinSize+p.MaxPadding)

	recovered, err := p.Unpad(framed)
	require.NoError(t, err)
	assert.Equal(t, msg, recovered)
}

func TestMessagePadder_LongMessageJittered(t *testing.T) {
	p := NewMessagePadder()
	msg := make([]byte, 5000)
	for i := range msg {
		msg[i] = byte(i)
	}

	framed, err := p.Pad(msg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(framed), 4+len(msg))
	assert.LessOrEqual(t, len(framed), 4+len(msg)+p.MaxPadding)

	recovered, err := p.Unpad(framed)
	require.NoError(t, err)
	assert.Equal(t, msg, recovered)
}

func TestMessagePadder_EmptyMessageRoundTrips(t *testing.T) {
	p := NewMessagePadder()
	framed, err := p.Pad(nil)
	require.NoError(t, err)

	recovered, err := p.Unpad(framed)
	require.NoError(t, err)
	assert.Empty(t, recovered)
}

func TestMessagePadder_UnpadRejectsTruncatedFrame(t *testing.T) {
	p := NewMessagePadder()
	_, err := p.Unpad([]byte{0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

func TestMessagePadder_UnpadRejectsInconsistentLengthPrefix(t *testing.T) {
	p := NewMessagePadder()
	framed, err := p.Pad([]byte("hello"))
	require.NoError(t, err)

	// Corrupt the length prefix to claim more bytes than the frame has.
	corrupted := append([]byte(nil), framed...)
	corrupted[0] = 0xFF
	corrupted[1] = 0xFF

	_, err = p.Unpad(corrupted)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}
