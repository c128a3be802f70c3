// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package em4x70

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIDStoresLittleEndian(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	// tag transmits its ID most significant bit first
	vt.QueueResponseWord(0x12345678, 32)

	require.NoError(t, s.readID())
	assert.Equal(t, [4]byte{0x78, 0x56, 0x34, 0x12}, s.tag.ID())

	// the rest of the image stays zero
	assert.Equal(t, [4]byte{}, s.tag.UM1())
	assert.Equal(t, [8]byte{}, s.tag.UM2())
}

func TestReadIDSendsCommand(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueResponseWord(0x12345678, 32)
	require.NoError(t, s.readID())

	bursts := vt.SentBursts()
	require.Len(t, bursts, 1)
	// RM prefix plus the 4-bit ID command
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 1}, bursts[0])
}

func TestReadUM1AndUM2Regions(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueResponseWord(0xC0DE0001, 32)
	require.NoError(t, s.readUM1())
	assert.Equal(t, [4]byte{0x01, 0x00, 0xDE, 0xC0}, s.tag.UM1())

	vt.QueueResponseWord(0x1122334455667788, 64)
	require.NoError(t, s.readUM2())
	assert.Equal(t, [8]byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, s.tag.UM2())
}

func TestIdentifyDetectsVariant(t *testing.T) {
	t.Parallel()

	t.Run("em4170", func(t *testing.T) {
		t.Parallel()
		s, vt := newTestSession(t)
		vt.QueueResponseWord(0x12345678, 32)
		vt.QueueResponseWord(0xC0DE0001, 32)
		vt.QueueResponseWord(0xFEEDFACECAFEF00D, 64)

		em4170, err := s.identify()
		require.NoError(t, err)
		assert.True(t, em4170)
	})

	t.Run("v4070 has no um2", func(t *testing.T) {
		t.Parallel()
		s, vt := newTestSession(t)
		vt.QueueResponseWord(0x12345678, 32)
		vt.QueueResponseWord(0xC0DE0001, 32)
		// no UM2 response: the tag never answers and the read fails

		em4170, err := s.identify()
		require.NoError(t, err)
		assert.False(t, em4170)
	})
}

func TestAuthenticateReturnsGRN(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	rnd := [7]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	frnd := [4]byte{0xAA, 0xBB, 0xCC, 0xDD}

	// 20-bit g(RN) = 0xABCDE
	vt.QueueResponseWord(0xABCDE, 20)

	grn, err := s.authenticate(rnd, frnd)
	require.NoError(t, err)
	assert.Equal(t, [3]byte{0xE0, 0xCD, 0xAB}, grn)

	// the full 95-bit command went out after RM, exactly as built
	bursts := vt.SentBursts()
	require.Len(t, bursts, 1)
	want := append([]byte{0, 0}, sendBits(buildAuthCommand(false, &rnd, &frnd))...)
	assert.Equal(t, want, bursts[0])
}

func TestAuthenticateShortResponse(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueResponseWord(0xAB, 8) // tag gives up after 8 bits

	_, err := s.authenticate([7]byte{}, [4]byte{})
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestTransceiveNoResponse(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueSilence()

	err := s.readID()
	require.Error(t, err)
	assert.Equal(t, [4]byte{}, s.tag.ID(), "image untouched on failure")
}

func TestWriteWordDoubleAck(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueAckPair()
	require.NoError(t, s.writeWord(0xBEEF, 9))

	bursts := vt.SentBursts()
	require.Len(t, bursts, 1)
	want := append([]byte{0, 0}, sendBits(buildWriteCommand(false, 0xBEEF, 9))...)
	assert.Equal(t, want, bursts[0])
}

func TestWriteWordMissingSecondAck(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueAckThenSilence()
	err := s.writeWord(0xBEEF, 9)
	assert.ErrorIs(t, err, ErrNoAck)
}

func TestWriteWordNak(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueNak()
	err := s.writeWord(0x1234, 3)
	assert.ErrorIs(t, err, ErrNoAck)
}

func TestWriteWordRejectsBadAddress(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)

	err := s.writeWord(0x0000, 16)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSendPINRefreshesID(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	// PIN needs the ID in the image first
	copy(s.tag.data[4:8], []byte{0xDE, 0xAD, 0xBE, 0xEF})

	// ACK after TWALB, then the re-issued ID 0xCAFEBABE after TWEE
	vt.QueueAckThenResponse(msbBits(0xCAFEBABE, 32))

	require.NoError(t, s.sendPIN(0x11223344))
	assert.Equal(t, [4]byte{0xBE, 0xBA, 0xFE, 0xCA}, s.tag.ID())

	// the 68-bit PIN command went out as built: reversed ID bytes,
	// then the PIN least significant byte first
	bursts := vt.SentBursts()
	require.Len(t, bursts, 1)
	id := [4]byte{0xDE, 0xAD, 0xBE, 0xEF}
	want := append([]byte{0, 0}, sendBits(buildPINCommand(false, &id, 0x11223344))...)
	assert.Equal(t, want, bursts[0])
}

func TestSendPINNoAck(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	copy(s.tag.data[4:8], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	vt.QueueSilence()

	err := s.sendPIN(0x11223344)
	assert.ErrorIs(t, err, ErrNoAck)
	// the failed exchange must not clobber the stored ID
	assert.Equal(t, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, s.tag.ID())
}

func TestWriteKeyDescendingBlocks(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	key := [12]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C}
	for i := 0; i < 6; i++ {
		vt.QueueAckPair()
	}

	require.NoError(t, s.writeKey(key))
	assert.Zero(t, vt.Pending(), "all six writes consumed")

	// six write bursts, blocks 9 down to 4, words little-endian from
	// the key bytes
	bursts := vt.SentBursts()
	require.Len(t, bursts, 6)
	for i, burst := range bursts {
		word := uint16(key[i*2+1])<<8 | uint16(key[i*2])
		want := append([]byte{0, 0}, sendBits(buildWriteCommand(false, word, byte(9-i)))...)
		assert.Equal(t, want, burst, "write %d", i)
	}
}

func TestWriteKeyStopsOnFirstFailure(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	vt.QueueAckPair()
	vt.QueueNak() // second block write fails

	err := s.writeKey([12]byte{})
	assert.ErrorIs(t, err, ErrNoAck)
	require.Len(t, vt.SentBursts(), 2, "no writes after the failure")
}

func TestWritePINProgramsBothWordsThenUnlocks(t *testing.T) {
	t.Parallel()
	s, vt := newTestSession(t)

	copy(s.tag.data[4:8], []byte{0x01, 0x02, 0x03, 0x04})

	vt.QueueAckPair() // PIN upper word
	vt.QueueAckPair() // PIN lower word
	vt.QueueAckThenResponse(msbBits(0x04030201, 32))

	require.NoError(t, s.writePIN(0xA1B2C3D4))

	bursts := vt.SentBursts()
	require.Len(t, bursts, 3)
	wantUpper := append([]byte{0, 0}, sendBits(buildWriteCommand(false, 0xC3D4, blockPINUpper))...)
	wantLower := append([]byte{0, 0}, sendBits(buildWriteCommand(false, 0xA1B2, blockPINLower))...)
	assert.Equal(t, wantUpper, bursts[0])
	assert.Equal(t, wantLower, bursts[1])
}

// msbBits expands a value into bits, most significant first.
func msbBits(value uint64, n int) []byte {
	bits := make([]byte, n)
	for i := 0; i < n; i++ {
		bits[i] = byte(value>>uint(n-1-i)) & 1
	}
	return bits
}
