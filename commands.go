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

// EM4x70 command identifiers. Only the three least significant bits are
// the command proper; EM4170 variants additionally expect an even parity
// bit appended, which the bitstream builder handles.
const (
	cmdID    = 0x01 // read 32-bit device ID
	cmdUM1   = 0x02 // read user memory 1 (lock bits + 30 bits)
	cmdAuth  = 0x03 // authenticate with RN/f(RN), receive g(RN)
	cmdPIN   = 0x04 // send 32-bit PIN to unlock
	cmdWrite = 0x05 // write a 16-bit word to a block
	cmdUM2   = 0x07 // read user memory 2 (64 bits, EM4170 only)
)

// EEPROM block addresses. The tag stores sixteen 16-bit words; the
// crypto key occupies blocks 4..9 and the PIN blocks 10..11.
const (
	blockKeyFirst = 4
	blockKeyLast  = 9

	blockPINLower = 10
	blockPINUpper = 11
)

// Wire sizes shared between the builder, the transaction engine and the
// trace log.
const (
	// maxSendBits is the capacity of a command bitstream, one more than
	// the longest command (AUTH): CMD(4) + RN(56) + diversity(7) +
	// f(RN)(28) = 95 bits. The two RM bits are emitted by the
	// listen-window detector and not counted here.
	maxSendBits = 96

	// maxReceiveBits is the longest tag response (UM2), excluding the
	// 16-bit 0b1111_1111_1111_0000 header.
	maxReceiveBits = 64

	maxBitstreamBits = maxSendBits
)
