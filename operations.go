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

// readID reads the pre-programmed 32-bit device ID into the tag image.
func (s *Session) readID() error {
	cb := buildIDCommand(s.parity)
	if err := s.transceive(cb); err != nil {
		return fmt.Errorf("read id: %w", err)
	}
	copy(s.tag.data[4:8], cb.received[:4])
	return nil
}

// readUM1 reads user memory 1, including the lock bits.
func (s *Session) readUM1() error {
	cb := buildUM1Command(s.parity)
	if err := s.transceive(cb); err != nil {
		return fmt.Errorf("read um1: %w", err)
	}
	copy(s.tag.data[0:4], cb.received[:4])
	return nil
}

// readUM2 reads user memory 2. V4070/EM4070 tags do not have it and
// simply never answer.
func (s *Session) readUM2() error {
	cb := buildUM2Command(s.parity)
	if err := s.transceive(cb); err != nil {
		return fmt.Errorf("read um2: %w", err)
	}
	copy(s.tag.data[24:32], cb.received[:8])
	return nil
}

// identify reads ID and UM1, then probes UM2 to distinguish an EM4170
// (present) from a V4070 (absent). Returns whether UM2 was readable.
func (s *Session) identify() (bool, error) {
	if err := s.readID(); err != nil {
		return false, err
	}
	if err := s.readUM1(); err != nil {
		return false, err
	}
	return s.readUM2() == nil, nil
}

// authenticate sends the 56-bit challenge and 28-bit f(RN) and returns
// the tag's 20-bit g(RN), left-aligned in three bytes.
func (s *Session) authenticate(rnd [7]byte, frnd [4]byte) ([3]byte, error) {
	var grn [3]byte

	cb := buildAuthCommand(s.parity, &rnd, &frnd)
	if err := s.transceive(cb); err != nil {
		return grn, fmt.Errorf("authenticate: %w", err)
	}

	copy(grn[:], cb.received[:3])
	return grn, nil
}

// sendPIN transmits the unlock PIN. The tag ID must already be in the
// image (a prior readID); on success the tag re-issues its ID, which
// refreshes the image.
func (s *Session) sendPIN(pin uint32) error {
	id := s.tag.ID()

	cb := buildPINCommand(s.parity, &id, pin)
	if err := s.pinTransaction(cb); err != nil {
		return err
	}

	copy(s.tag.data[4:8], cb.received[:4])
	return nil
}

// writeWord writes a 16-bit word to the given block address (0-15).
func (s *Session) writeWord(word uint16, address byte) error {
	if address > 0x0F {
		return fmt.Errorf("%w: block address %d out of range", ErrInvalidParameter, address)
	}

	cb := buildWriteCommand(s.parity, word, address)
	if err := s.writeTransaction(cb); err != nil {
		return fmt.Errorf("write block %d: %w", address, err)
	}
	return nil
}

// writePIN programs a new PIN into blocks 10..11 and then sends it to
// confirm the tag accepts it.
func (s *Session) writePIN(pin uint32) error {
	if err := s.writeWord(uint16(pin), blockPINUpper); err != nil {
		return err
	}
	if err := s.writeWord(uint16(pin>>16), blockPINLower); err != nil {
		return err
	}
	return s.sendPIN(pin)
}

// writeKey programs the 96-bit crypto key into blocks 9..4, highest
// block first, aborting on the first failed write. The key bytes pair
// up little-endian into words: word i = key[2i+1]<<8 | key[2i].
func (s *Session) writeKey(key [12]byte) error {
	for i := 0; i < 6; i++ {
		word := uint16(key[i*2+1])<<8 | uint16(key[i*2])
		if err := s.writeWord(word, byte(blockKeyLast-i)); err != nil {
			return err
		}
	}
	return nil
}

// refresh re-reads UM1 and UM2 after a successful write so the image
// reflects the tag's new contents. UM2 is best-effort: a V4070 will
// not answer it.
func (s *Session) refresh() {
	_ = s.readUM1()
	_ = s.readUM2()
}
