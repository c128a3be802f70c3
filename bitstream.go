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
	"github.com/ZaparooProject/go-em4x70/internal/bitutil"
)

// bitstream is a fixed-capacity sequence of single bits, one per byte.
// Storing a byte per bit keeps the timing-critical send loop free of
// shifting and branching; packing into bytes happens only outside the
// timing-sensitive region.
type bitstream struct {
	bitcount uint8
	bits     [maxBitstreamBits]byte
}

func (b *bitstream) appendBit(v byte) {
	b.bits[b.bitcount] = v & 1
	b.bitcount++
}

// appendByte appends the eight bits of v, most significant first.
func (b *bitstream) appendByte(v byte) {
	for shift := 7; shift >= 0; shift-- {
		b.appendBit(v >> uint(shift))
	}
}

// appendNibble appends the low four bits of v, most significant first.
func (b *bitstream) appendNibble(v byte) {
	for shift := 3; shift >= 0; shift-- {
		b.appendBit(v >> uint(shift))
	}
}

// appendNibbleParity appends the even parity bit of the low four bits
// of v.
func (b *bitstream) appendNibbleParity(v byte) {
	b.appendBit(bitutil.NibbleParity(v))
}

// appendCommand appends the 4-bit command field. With parity the three
// command bits are followed by their even parity; without, the command
// is zero-extended on the left to four bits.
func (b *bitstream) appendCommand(cmd byte, withParity bool) {
	if withParity {
		var parity byte
		for shift := 2; shift >= 0; shift-- {
			bit := (cmd >> uint(shift)) & 1
			b.appendBit(bit)
			parity ^= bit
		}
		b.appendBit(parity)
		return
	}
	b.appendBit(0)
	for shift := 2; shift >= 0; shift-- {
		b.appendBit(cmd >> uint(shift))
	}
}

// commandBitstream holds a fully built command exchange: the bits to
// clock out after the RM prefix, the number of response bits expected,
// and, after a successful receive, the response packed into bytes.
//
// Response bits arrive most significant field bit first and are packed
// in reverse of arrival order, so the byte array reads back as the
// field's little-endian representation. The 20-bit g(RN) response is
// padded with four zeros to the byte boundary before packing.
type commandBitstream struct {
	command  byte
	send     bitstream
	recvBits uint8
	received [maxReceiveBits / 8]byte
}

// buildReadCommand covers the three fixed read commands (ID, UM1, UM2):
// four command bits out, a full field back.
func buildReadCommand(cmd byte, withParity bool, recvBits uint8) *commandBitstream {
	cb := &commandBitstream{command: cmd, recvBits: recvBits}
	cb.send.appendCommand(cmd, withParity)
	return cb
}

func buildIDCommand(withParity bool) *commandBitstream {
	return buildReadCommand(cmdID, withParity, 32)
}

func buildUM1Command(withParity bool) *commandBitstream {
	return buildReadCommand(cmdUM1, withParity, 32)
}

func buildUM2Command(withParity bool) *commandBitstream {
	return buildReadCommand(cmdUM2, withParity, 64)
}

// buildAuthCommand lays out CMD(4) | RN(56) | diversity zeros(7) |
// f(RN)(28) = 95 bits, expecting the 20-bit g(RN) back.
func buildAuthCommand(withParity bool, rnd *[7]byte, frnd *[4]byte) *commandBitstream {
	cb := &commandBitstream{command: cmdAuth, recvBits: 20}
	cb.send.appendCommand(cmdAuth, withParity)

	// 56-bit random number, byte-wise MSB first
	for _, b := range rnd {
		cb.send.appendByte(b)
	}

	// seven diversity bits, all zero
	for i := 0; i < 7; i++ {
		cb.send.appendBit(0)
	}

	// first 24 bits of f(RN), then the high nibble of the last byte
	for i := 0; i < 3; i++ {
		cb.send.appendByte(frnd[i])
	}
	cb.send.appendNibble(frnd[3] >> 4)

	return cb
}

// buildPINCommand lays out CMD(4) | tag ID byte-reversed(32) |
// PIN LSB-byte first(32) = 68 bits. The tag answers with an ACK and
// then re-issues its 32-bit ID.
func buildPINCommand(withParity bool, tagID *[4]byte, pin uint32) *commandBitstream {
	cb := &commandBitstream{command: cmdPIN, recvBits: 32}
	cb.send.appendCommand(cmdPIN, withParity)

	for i := 0; i < 4; i++ {
		cb.send.appendByte(tagID[3-i])
	}

	for i := 0; i < 4; i++ {
		cb.send.appendByte(byte(pin >> uint(i*8)))
	}

	return cb
}

// buildWriteCommand lays out CMD(4) | address(4)+parity | 4 x
// (data nibble(4)+parity) | column parity(4) | stop(1) = 34 bits.
// The word's bytes are swapped before splitting into nibbles so the
// high byte of the stored word goes out last.
func buildWriteCommand(withParity bool, word uint16, address byte) *commandBitstream {
	cb := &commandBitstream{command: cmdWrite, recvBits: 0}
	cb.send.appendCommand(cmdWrite, withParity)

	address &= 0x0F
	cb.send.appendNibble(address)
	cb.send.appendNibbleParity(address)

	nibbles := [4]byte{
		byte(word>>4) & 0xF,
		byte(word) & 0xF,
		byte(word>>12) & 0xF,
		byte(word>>8) & 0xF,
	}

	columnParity := nibbles[0] ^ nibbles[1] ^ nibbles[2] ^ nibbles[3]
	for _, nibble := range nibbles {
		cb.send.appendNibble(nibble)
		cb.send.appendNibbleParity(nibble)
	}
	cb.send.appendNibble(columnParity)
	cb.send.appendBit(0)

	return cb
}

// packReceived converts n received bits into the byte form, rounding the
// bit count up to the next byte boundary. The AUTH response is 20 bits
// on the air but has always been decoded as if the tag sent 24.
func (cb *commandBitstream) packReceived(bits []byte, n int) {
	padded := n
	if padded%8 != 0 {
		padded = (padded/8 + 1) * 8
	}
	copy(cb.received[:], bitutil.Pack(bits[:padded]))
}

// dump writes the built bitstream to the debug log in the same format
// as the transaction trace, to make comparing the two easier.
func (cb *commandBitstream) dump() {
	if !debugEnabled {
		return
	}
	dumpBits("sent >>>", cb.send.bits[:cb.send.bitcount], true)
	if cb.recvBits == 0 {
		Debugf("recv <<<: no data")
	}
}

func dumpBits(direction string, bits []byte, transmit bool) {
	if len(bits) == 0 {
		Debugf("%s: no data", direction)
		return
	}
	buf := make([]byte, 0, len(bits)+2)
	count := len(bits)
	if transmit {
		// account for the two RM bits emitted by the LIW detector
		buf = append(buf, '0', '0')
		count += 2
	}
	for _, b := range bits {
		buf = append(buf, '0'+b)
	}
	Debugf("%s: %2d bits: %s", direction, count, buf)
}
