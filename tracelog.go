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

// maxLogBits is the capacity of each direction's log. It covers the
// longest transmission (the two RM bits plus the 95-bit AUTH command)
// and the longest response (64 bits), with room to spare.
const maxLogBits = 112

// subLog captures one direction of a transaction: tick stamps for the
// first and last bit, and the bits themselves, one per byte.
type subLog struct {
	startTick uint32
	endTick   uint32
	used      int
	bits      [maxLogBits]byte
}

// traceLog records the bits sent and received during a single
// transaction. It is reset at every transaction start and consulted
// only by the debug dump.
type traceLog struct {
	transmit subLog
	receive  subLog
}

func (l *traceLog) reset() {
	*l = traceLog{}
}

func (l *traceLog) sentBit(startTick uint32, bit byte) {
	if l.transmit.used == 0 {
		l.transmit.startTick = startTick
	}
	if l.transmit.used < len(l.transmit.bits) {
		l.transmit.bits[l.transmit.used] = bit
		l.transmit.used++
	}
}

func (l *traceLog) sentBitEnd(endTick uint32) {
	l.transmit.endTick = endTick
}

func (l *traceLog) receiveStart(tick uint32) {
	if l.receive.startTick == 0 {
		l.receive.startTick = tick
	}
}

func (l *traceLog) receiveEnd(tick uint32) {
	l.receive.endTick = tick
}

func (l *traceLog) receivedBits(bits []byte) {
	n := copy(l.receive.bits[l.receive.used:], bits)
	l.receive.used += n
}

func (l *traceLog) dump() {
	if !debugEnabled {
		return
	}
	if l.transmit.used == 0 && l.receive.used == 0 {
		return
	}
	l.transmit.dump("sent >>>")
	l.receive.dump("recv <<<")
}

func (part *subLog) dump(direction string) {
	if part.used == 0 {
		Debugf("%s: no data", direction)
		return
	}
	buf := make([]byte, part.used)
	for i := 0; i < part.used; i++ {
		buf[i] = '0' + part.bits[i]
	}
	Debugf("%s: [ %8d .. %8d ] ( %6d ) %2d bits: %s",
		direction,
		part.startTick, part.endTick,
		part.endTick-part.startTick,
		part.used, buf)
}
