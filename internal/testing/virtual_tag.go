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

// Package testing provides a waveform-level simulation of an EM4x70 tag
// for exercising the protocol engine without hardware. The simulator
// implements the engine's Frontend interface: every Sample or Ticks
// poll advances a virtual clock, and the returned ADC levels replay the
// tag's idle listen windows, response headers, Manchester-coded data
// bits and ACK pulses.
package testing

// Tick geometry, mirroring the engine's constants (1 carrier cycle =
// 12 ticks, 1 bit period = 32 cycles). Durations inside the simulator
// are expressed in half bit periods.
const (
	ticksPerFc    = 12
	halfPeriod    = 16 * ticksPerFc
	fullPeriod    = 32 * ticksPerFc
	defaultStep   = 8 // ticks advanced per Sample/Ticks poll
	levelHigh     = 200
	levelLow      = 60
	levelIdleHigh = levelHigh
)

// segment is a stretch of constant signal level.
type segment struct {
	level byte
	dur   uint32 // ticks
}

// train is one tag response: a segment sequence armed as a unit.
// A chained train follows its predecessor within the same transaction
// (the second ACK of a write, the re-issued ID after a PIN) and arms
// without the reader transmitting in between.
type train struct {
	segments []segment
	total    uint32
	chained  bool
}

func newTrain(segments []segment, chained bool) train {
	t := train{segments: segments, chained: chained}
	for _, seg := range segments {
		t.total += seg.dur
	}
	return t
}

// ModEvent records one transition of the reader's modulation line.
type ModEvent struct {
	Tick uint32
	High bool
}

// VirtualTag simulates an EM4x70 transponder behind the Frontend
// interface. Responses are queued ahead of the exchange; between
// responses the tag idles, emitting its listen window pattern.
//
// A queued response arms at the first Sample poll after the reader has
// modulated (sent a command), or immediately after the previous train
// of the same transaction finished. This mirrors the real tag, which
// answers only once it has been addressed.
type VirtualTag struct {
	ModEvents []ModEvent

	tick uint32
	step uint32

	idle      []segment
	idleTotal uint32

	queue     []train
	active    *train
	activeOff uint32 // tick at which the active train was armed
	armReady  bool

	// AbortAfter makes AbortRequested return true once that many polls
	// have happened; zero disables it.
	AbortAfter int
	abortPolls int

	// SetupErr is returned by SetupRead when set.
	SetupErr error

	SetupCalls    int
	FinalizeCalls int
	WatchdogKicks int
	closed        bool
}

// NewVirtualTag creates a simulated tag idling in the field.
func NewVirtualTag() *VirtualTag {
	v := &VirtualTag{
		step: defaultStep,
		idle: liwSegments(),
	}
	for _, seg := range v.idle {
		v.idleTotal += seg.dur
	}
	return v
}

// seg builds a segment lasting n half bit periods.
func seg(level byte, n uint32) segment {
	return segment{level: level, dur: n * halfPeriod}
}

// liwSegments is one cycle of the idle listen window pattern. Its
// rising pulse intervals run 2.5, 2.5 bit periods and its falling
// intervals 3 then 2, which is exactly the signature the engine's
// detector matches.
func liwSegments() []segment {
	return []segment{
		seg(levelHigh, 4), // rise at 0
		seg(levelLow, 1),  // fall at 4
		seg(levelHigh, 4), // rise at 5
		seg(levelLow, 1),  // fall at 9
		seg(levelHigh, 1), // rise at 10
		seg(levelLow, 4),  // fall at 11
		seg(levelHigh, 2), // rise at 15
		seg(levelLow, 2),  // fall at 17
		seg(levelHigh, 2), // rise at 19
		seg(levelLow, 2),  // fall at 21, cycle ends at 23
	}
}

// bitSegments renders data bits in the tag's Manchester coding: a one
// is carrier-high then low, a zero is low then high, one half period
// each.
func bitSegments(bits []byte) []segment {
	out := make([]segment, 0, len(bits)*2)
	for _, b := range bits {
		if b != 0 {
			out = append(out, seg(levelHigh, 1), seg(levelLow, 1))
		} else {
			out = append(out, seg(levelLow, 1), seg(levelHigh, 1))
		}
	}
	return out
}

// headerBits is the response preamble: twelve ones and four zeros.
func headerBits() []byte {
	bits := make([]byte, 16)
	for i := 0; i < 12; i++ {
		bits[i] = 1
	}
	return bits
}

// responseSegments renders header + payload, a trailing phantom bit to
// give the final payload bit its closing edge, and a long tail that
// breaks the decoder's cadence like a listen window would.
func responseSegments(payload []byte) []segment {
	bits := append(headerBits(), payload...)
	if len(payload) > 0 {
		// phantom complement bit so the last payload bit has an edge
		// at the position the decoder measures to
		bits = append(bits, 1-payload[len(payload)-1]&1)
	}
	segs := bitSegments(bits)
	segs = append(segs, seg(levelLow, 6), seg(levelHigh, 6))
	return segs
}

// ackSegments produces the tag's ACK: two falling pulses of two bit
// periods each.
func ackSegments() []segment {
	return []segment{
		seg(levelHigh, 2),
		seg(levelLow, 2),
		seg(levelHigh, 2),
		seg(levelLow, 2),
		seg(levelHigh, 2),
		seg(levelLow, 2),
		seg(levelHigh, 2),
	}
}

// nakSegments produces a NAK: a two period falling pulse followed by a
// one-and-a-half period one.
func nakSegments() []segment {
	return []segment{
		seg(levelHigh, 2),
		seg(levelLow, 2),
		seg(levelHigh, 2),
		seg(levelLow, 2),
		seg(levelHigh, 1),
		seg(levelLow, 2),
		seg(levelHigh, 2),
	}
}

// silenceSegments holds the carrier steady, which the engine sees as a
// pulse timeout.
func silenceSegments() []segment {
	return []segment{seg(levelHigh, 40)}
}

// QueueResponse queues a header + payload response for the next
// command. Payload bits are in the tag's transmission order, one bit
// per byte.
func (v *VirtualTag) QueueResponse(payload []byte) {
	v.queue = append(v.queue, newTrain(responseSegments(payload), false))
}

// QueueResponseWord queues a response carrying the given value, most
// significant bit first, over the given number of bits.
func (v *VirtualTag) QueueResponseWord(value uint64, bits int) {
	payload := make([]byte, bits)
	for i := 0; i < bits; i++ {
		payload[i] = byte(value>>uint(bits-1-i)) & 1
	}
	v.QueueResponse(payload)
}

// QueueAckPair queues the two ACKs of a successful write.
func (v *VirtualTag) QueueAckPair() {
	v.queue = append(v.queue,
		newTrain(ackSegments(), false),
		newTrain(ackSegments(), true),
	)
}

// QueueAckThenSilence queues a first ACK and then nothing, as a tag
// whose EEPROM write failed would behave.
func (v *VirtualTag) QueueAckThenSilence() {
	v.queue = append(v.queue,
		newTrain(ackSegments(), false),
		newTrain(silenceSegments(), true),
	)
}

// QueueNak queues a NAK in place of the first ACK.
func (v *VirtualTag) QueueNak() {
	v.queue = append(v.queue, newTrain(nakSegments(), false))
}

// QueueSilence queues dead air for the next command.
func (v *VirtualTag) QueueSilence() {
	v.queue = append(v.queue, newTrain(silenceSegments(), false))
}

// QueueAckThenResponse queues the PIN exchange: an ACK followed by a
// response train (the re-issued ID).
func (v *VirtualTag) QueueAckThenResponse(payload []byte) {
	v.queue = append(v.queue,
		newTrain(ackSegments(), false),
		newTrain(responseSegments(payload), true),
	)
}

// SetIdleSilence replaces the idle listen window pattern with a steady
// carrier, simulating an empty field.
func (v *VirtualTag) SetIdleSilence() {
	v.idle = []segment{seg(levelHigh, 8)}
	v.idleTotal = 0
	for _, s := range v.idle {
		v.idleTotal += s.dur
	}
}

// SetIdleDark replaces the idle pattern with a flat low level, so even
// the signal presence gate fails.
func (v *VirtualTag) SetIdleDark() {
	v.idle = []segment{seg(levelLow, 8)}
	v.idleTotal = 0
	for _, s := range v.idle {
		v.idleTotal += s.dur
	}
}

// Pending returns the number of queued, unplayed response trains.
func (v *VirtualTag) Pending() int {
	return len(v.queue)
}

// levelAt walks the active train or the idle pattern to find the signal
// level at the current tick.
func (v *VirtualTag) levelAt() byte {
	if v.active != nil {
		off := v.tick - v.activeOff
		if off < v.active.total {
			for _, s := range v.active.segments {
				if off < s.dur {
					return s.level
				}
				off -= s.dur
			}
		}
		// train exhausted: fall back to idle, chain the next train if
		// this transaction has one
		v.active = nil
		v.armReady = len(v.queue) > 0 && v.queue[0].chained
	}

	if v.armReady && len(v.queue) > 0 {
		t := v.queue[0]
		v.queue = v.queue[1:]
		v.active = &t
		v.activeOff = v.tick
		v.armReady = false
		return v.levelAt()
	}

	off := v.tick % v.idleTotal
	for _, s := range v.idle {
		if off < s.dur {
			return s.level
		}
		off -= s.dur
	}
	return levelIdleHigh
}

// SetupRead implements Frontend.
func (v *VirtualTag) SetupRead() error {
	v.SetupCalls++
	if v.SetupErr != nil {
		return v.SetupErr
	}
	return nil
}

// Finalize implements Frontend.
func (v *VirtualTag) Finalize() {
	v.FinalizeCalls++
}

// Sample implements Frontend: each poll advances the virtual clock.
func (v *VirtualTag) Sample() byte {
	v.tick += v.step
	return v.levelAt()
}

// ModHigh implements Frontend.
func (v *VirtualTag) ModHigh() {
	v.ModEvents = append(v.ModEvents, ModEvent{Tick: v.tick, High: true})
	v.armReady = true
}

// ModLow implements Frontend.
func (v *VirtualTag) ModLow() {
	v.ModEvents = append(v.ModEvents, ModEvent{Tick: v.tick, High: false})
	v.armReady = true
}

// Ticks implements Frontend: polling the clock advances it, so the
// engine's busy-wait loops make progress.
func (v *VirtualTag) Ticks() uint32 {
	v.tick += v.step
	return v.tick
}

// WaitTicks implements Frontend.
func (v *VirtualTag) WaitTicks(n uint32) {
	v.tick += n
}

// WatchdogKick implements Frontend.
func (v *VirtualTag) WatchdogKick() {
	v.WatchdogKicks++
}

// AbortRequested implements Frontend.
func (v *VirtualTag) AbortRequested() bool {
	if v.AbortAfter == 0 {
		return false
	}
	v.abortPolls++
	return v.abortPolls >= v.AbortAfter
}

// Close implements Frontend.
func (v *VirtualTag) Close() error {
	v.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (v *VirtualTag) Closed() bool {
	return v.closed
}
