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

// receive demodulates a tag response into bits, one per byte of the
// output slice. It must be called immediately after the last command
// bit has been clocked out.
//
// Every response starts with the 16-bit header 0b1111_1111_1111_0000.
// The twelve ones produce full-period pulses; the transition into the
// zeros is the first 1.5-period pulse, which is what the header search
// locks onto. After the header, pulse lengths of 1, 1.5 and 2 periods
// encode the data bits until the next listen window breaks the cadence.
//
// Returns the number of bits decoded, which may be fewer than maxBits,
// along with ErrHeaderNotFound or ErrPulseTimeout when the header never
// appeared.
func (s *Session) receive(bits []byte, maxBits int) (int, error) {
	// Skip about half of the leading ones as the signal can start off
	// noisy while the tag settles.
	s.fe.WaitTicks(6 * tFullPeriod)

	edge := risingEdge

	// Wait for the ones-to-zeros transition, a 1.5 period pulse.
	foundHeader := false
	for i := 0; i < readHeaderLen; i++ {
		pulse := s.pulseLength(edge)
		if pulse == 0 {
			return 0, ErrPulseTimeout
		}
		if checkPulseLength(pulse, 3*tHalfPeriod) {
			foundHeader = true
			break
		}
	}
	if !foundHeader {
		return 0, ErrHeaderNotFound
	}

	// Skip the next three zeros; the header check consumed the first.
	for i := 0; i < 3; i++ {
		if !checkPulseLength(s.pulseLength(edge), tFullPeriod) {
			return 0, ErrHeaderNotFound
		}
	}

	s.log.receiveStart(s.fe.Ticks())

	// Between listen windows only pulse lengths of 1, 1.5 and 2 bit
	// periods occur.
	bitPos := 0
decode:
	for bitPos < maxBits {
		pulse := s.pulseLength(edge)

		switch {
		case checkPulseLength(pulse, tFullPeriod):
			// one bit, value follows the current edge polarity
			if edge == fallingEdge {
				bits[bitPos] = 1
			} else {
				bits[bitPos] = 0
			}
			bitPos++

		case checkPulseLength(pulse, 3*tHalfPeriod):
			// two equal bits, then the edge polarity flips
			if edge == fallingEdge {
				bits[bitPos] = 0
				bitPos++
				if bitPos < maxBits {
					bits[bitPos] = 0
					bitPos++
				}
				edge = risingEdge
			} else {
				bits[bitPos] = 1
				bitPos++
				if bitPos < maxBits {
					bits[bitPos] = 1
					bitPos++
				}
				edge = fallingEdge
			}

		case checkPulseLength(pulse, 2*tFullPeriod):
			// two complementary bits, polarity unchanged
			if edge == fallingEdge {
				bits[bitPos] = 0
				bitPos++
				if bitPos < maxBits {
					bits[bitPos] = 1
					bitPos++
				}
			} else {
				bits[bitPos] = 1
				bitPos++
				if bitPos < maxBits {
					bits[bitPos] = 0
					bitPos++
				}
			}

		default:
			// the next listen window, or an invalid bit
			break decode
		}
	}

	s.log.receiveEnd(s.fe.Ticks())
	s.log.receivedBits(bits[:bitPos])

	return bitPos, nil
}
