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
	"fmt"

	"github.com/ZaparooProject/go-em4x70/internal/bitutil"
)

// setReflected stores the bit-reversed low byte of v and returns the
// carry out (1 if v overflowed a byte).
func setReflected(target *byte, v uint16) int {
	c := 0
	if v > 0xFF {
		c = 1
	}
	*target = bitutil.Reflect8(byte(v))
	return c
}

// applyBruteKey derives the challenge for key candidate k when brute
// forcing the key block at address 7, 8 or 9. The 56-bit challenge is
// held bit-reversed per byte; the reflected candidate is added into the
// byte pair the block feeds, with the carry rippling through the
// remaining bytes:
//
//	block 9: bytes 0..1 take the addend, carry through 2..6
//	block 8: bytes 2..3 take the addend, carry through 4..6
//	block 7: bytes 4..5 take the addend, carry through 6
func applyBruteKey(rnd [7]byte, k uint16, address byte) ([7]byte, error) {
	rev := bitutil.ReflectBytes(rnd[:])
	revK := bitutil.Reflect16(k)

	var out [7]byte
	copy(out[:], rnd[:])

	c := 0
	switch address {
	case 9:
		c = setReflected(&out[0], uint16(rev[0])+(revK&0xFF))
		c = setReflected(&out[1], uint16(rev[1])+uint16(c)+(revK>>8))
		c = setReflected(&out[2], uint16(rev[2])+uint16(c))
		c = setReflected(&out[3], uint16(rev[3])+uint16(c))
		c = setReflected(&out[4], uint16(rev[4])+uint16(c))
		c = setReflected(&out[5], uint16(rev[5])+uint16(c))
		setReflected(&out[6], uint16(rev[6])+uint16(c))

	case 8:
		c = setReflected(&out[2], uint16(rev[2])+(revK&0xFF))
		c = setReflected(&out[3], uint16(rev[3])+uint16(c)+(revK>>8))
		c = setReflected(&out[4], uint16(rev[4])+uint16(c))
		c = setReflected(&out[5], uint16(rev[5])+uint16(c))
		setReflected(&out[6], uint16(rev[6])+uint16(c))

	case 7:
		c = setReflected(&out[4], uint16(rev[4])+(revK&0xFF))
		c = setReflected(&out[5], uint16(rev[5])+uint16(c)+(revK>>8))
		setReflected(&out[6], uint16(rev[6])+uint16(c))

	default:
		return out, fmt.Errorf("%w: block %d is not a partial key block", ErrInvalidParameter, address)
	}

	return out, nil
}

// bruteForce searches the 16-bit key word at the given block address by
// attempting authentication for every candidate from start upward. Each
// candidate gets exactly one attempt, so a stable coupling between tag
// and antenna matters more than the retry budget here. Progress is
// reported every 256 candidates; the abort line is polled once per
// candidate.
func (s *Session) bruteForce(address byte, rnd [7]byte, frnd [4]byte, start uint16) (uint16, error) {
	for k := int(start); k <= 0xFFFF; k++ {
		s.fe.WatchdogKick()

		candidate := uint16(k)
		tempRnd, err := applyBruteKey(rnd, candidate, address)
		if err != nil {
			return 0, err
		}

		if k%0x100 == 0 {
			if s.progress != nil {
				s.progress(candidate)
			}
			Debugf("Trying: %04X", k)
		}

		if _, err := s.authFn(tempRnd, frnd); err == nil {
			Debugf("Authentication success with rnd: %X", tempRnd[:])
			return candidate, nil
		}

		if s.fe.AbortRequested() {
			return 0, fmt.Errorf("brute force interrupted: %w", ErrAborted)
		}
	}

	return 0, ErrKeyNotFound
}
