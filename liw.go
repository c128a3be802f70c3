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

// findListenWindow scans the carrier for the tag's idle listen window
// signature:
//
//	rising  2.5 periods ( 64 + 16 carrier cycles )
//	rising  2.5 periods ( 64 + 16 )
//	falling 3   periods ( 64 + 32 )
//	falling 2   periods ( 32 + 16 + 16 )
//
// With command set, a successful match is immediately followed by the
// RM prefix: a short wait and then two zero bits, arming the tag for
// the command bits the caller must clock out without delay.
func (s *Session) findListenWindow(command bool) bool {
	for cnt := 0; cnt < liwMaxAttempts; cnt++ {
		if checkPulseLength(s.pulseLength(risingEdge), 2*tFullPeriod+tHalfPeriod) &&
			checkPulseLength(s.pulseLength(risingEdge), 2*tFullPeriod+tHalfPeriod) &&
			checkPulseLength(s.pulseLength(fallingEdge), 3*tFullPeriod) &&
			checkPulseLength(s.pulseLength(fallingEdge), 2*tFullPeriod) {

			if command {
				// The datasheet asks for about 48 carrier cycles here;
				// the exact value depends on the coupling between tag
				// and reader, so it is tunable in the range 24-48.
				s.fe.WaitTicks(uint32(s.rmDelayFc) * ticksPerFc)
				s.sendBit(0)
				s.sendBit(0)
			}
			return true
		}
	}
	return false
}

// detectTag reports whether an EM4x70 tag is answering in the field, by
// looking for a listen window without arming a command. Used as the
// presence probe at the start of every operation and by callers doing a
// broad tag-type sweep.
func (s *Session) detectTag() bool {
	return s.findListenWindow(false)
}
