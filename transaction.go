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

import "fmt"

// sendBitstream aligns on a listen window, emits the RM prefix and
// clocks the command bits out back to back. Only the listen window
// search is retried; once RM has been sent the command goes out exactly
// once. Re-sending a partial command mid-frame can corrupt the tag.
func (s *Session) sendBitstream(send *bitstream) bool {
	for retries := s.liwRetries; retries > 0; retries-- {
		if s.findListenWindow(true) {
			for i := uint8(0); i < send.bitcount; i++ {
				s.sendBit(send.bits[i])
			}
			return true
		}
	}
	return false
}

// transceive runs a send-and-read transaction: ID, UM1, UM2 and AUTH all
// follow this shape. The response bits are packed into cb.received only
// when the full expected count arrived.
func (s *Session) transceive(cb *commandBitstream) error {
	s.log.reset()

	var bits [maxReceiveBits]byte

	if !s.sendBitstream(&cb.send) {
		return ErrNoListenWindow
	}

	n, err := s.receive(bits[:], int(cb.recvBits))

	s.log.dump()
	cb.dump()

	if err != nil {
		return err
	}
	if n < int(cb.recvBits) {
		return fmt.Errorf("%w: got %d of %d bits", ErrShortRead, n, cb.recvBits)
	}

	cb.packReceived(bits[:], n)
	return nil
}

// checkAck looks for the tag's ACK: two consecutive falling pulses of
// two full periods each ( 64 + 64 carrier cycles ). A NAK is 64 + 48;
// anything that is not an ACK counts as one.
func (s *Session) checkAck() bool {
	return checkPulseLength(s.fallingPulseLength(), 2*tFullPeriod) &&
		checkPulseLength(s.fallingPulseLength(), 2*tFullPeriod)
}

// writeTransaction runs the send-and-ack shape used by WRITE: after the
// last bit the tag acknowledges within the write access time, programs
// its EEPROM, and acknowledges again.
func (s *Session) writeTransaction(cb *commandBitstream) error {
	s.log.reset()

	if !s.sendBitstream(&cb.send) {
		return ErrNoListenWindow
	}

	s.fe.WaitTicks(tTWA)
	if !s.checkAck() {
		s.log.dump()
		return fmt.Errorf("write not accepted: %w", ErrNoAck)
	}

	s.fe.WaitTicks(tWEE)
	if !s.checkAck() {
		s.log.dump()
		return fmt.Errorf("write not confirmed: %w", ErrNoAck)
	}

	s.log.dump()
	cb.dump()
	return nil
}

// pinTransaction runs the send-wait-read shape used by PIN: the tag
// acknowledges within the lock-bit write access time, programs the lock
// bits, then re-issues its 32-bit ID as confirmation.
func (s *Session) pinTransaction(cb *commandBitstream) error {
	s.log.reset()

	var bits [maxReceiveBits]byte

	if !s.sendBitstream(&cb.send) {
		return ErrNoListenWindow
	}

	s.fe.WaitTicks(tTWALB)
	if !s.checkAck() {
		s.log.dump()
		return fmt.Errorf("pin not accepted: %w", ErrNoAck)
	}

	s.fe.WaitTicks(tWEE)
	n, err := s.receive(bits[:], int(cb.recvBits))

	s.log.dump()
	cb.dump()

	if err != nil {
		return err
	}
	if n < int(cb.recvBits) {
		return fmt.Errorf("%w: got %d of %d bits of re-issued id", ErrShortRead, n, cb.recvBits)
	}

	cb.packReceived(bits[:], n)
	return nil
}
