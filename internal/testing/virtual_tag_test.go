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

package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockAdvances(t *testing.T) {
	t.Parallel()

	v := NewVirtualTag()
	t0 := v.Ticks()
	t1 := v.Ticks()
	assert.Greater(t, t1, t0, "polling the clock must advance it")

	v.WaitTicks(1000)
	assert.GreaterOrEqual(t, v.Ticks(), t1+1000)

	_ = v.Sample()
	assert.Greater(t, v.Ticks(), t1+1000)
}

func TestIdlePatternHasBothLevels(t *testing.T) {
	t.Parallel()

	v := NewVirtualTag()
	var highs, lows int
	for i := 0; i < 2000; i++ {
		if v.Sample() > 140 {
			highs++
		} else {
			lows++
		}
	}
	assert.Positive(t, highs)
	assert.Positive(t, lows)
}

func TestResponseArmsOnlyAfterModulation(t *testing.T) {
	t.Parallel()

	v := NewVirtualTag()
	v.QueueResponse([]byte{1, 0, 1})
	require.Equal(t, 1, v.Pending())

	// sampling without modulating plays the idle pattern
	for i := 0; i < 500; i++ {
		_ = v.Sample()
	}
	assert.Equal(t, 1, v.Pending(), "response must not arm before a command")

	// a command (modulation) arms the queued response
	v.ModLow()
	_ = v.Sample()
	assert.Zero(t, v.Pending())
}

func TestChainedTrainFollowsWithoutModulation(t *testing.T) {
	t.Parallel()

	v := NewVirtualTag()
	v.QueueAckPair()
	require.Equal(t, 2, v.Pending())

	v.ModLow()
	_ = v.Sample() // arms the first ACK

	// exhaust the first ACK; the chained second one arms by itself
	v.WaitTicks(64 * halfPeriod)
	_ = v.Sample()
	assert.Zero(t, v.Pending())
}

func TestSegmentTotals(t *testing.T) {
	t.Parallel()

	// a response of n payload bits spans header + payload + phantom
	// bit, each one full period, plus the cadence-breaking tail
	segs := responseSegments([]byte{1, 0, 1, 1})
	var total uint32
	for _, s := range segs {
		total += s.dur
	}
	wantBits := uint32(16 + 4 + 1)
	assert.Equal(t, wantBits*2*halfPeriod+12*halfPeriod, total)
}

func TestAbortAfter(t *testing.T) {
	t.Parallel()

	v := NewVirtualTag()
	assert.False(t, v.AbortRequested(), "disabled by default")

	v.AbortAfter = 2
	assert.False(t, v.AbortRequested())
	assert.True(t, v.AbortRequested())
	assert.True(t, v.AbortRequested())
}

func TestSentBurstsDecodesBits(t *testing.T) {
	t.Parallel()

	v := NewVirtualTag()

	// replay the reader's bit encoding by hand: a zero is mod-release,
	// mod-assert at the notch, mod-release at the half period; a one
	// is a single release for the whole period
	tick := func() uint32 { return v.tick }
	emit := func(bit byte) {
		start := tick()
		v.ModLow()
		if bit == 0 {
			v.WaitTicks(48)
			v.ModHigh()
			v.WaitTicks(start + 192 - tick())
			v.ModLow()
		}
		v.WaitTicks(start + 384 - tick())
	}

	for _, b := range []byte{0, 0, 1, 0, 1, 1} {
		emit(b)
	}

	bursts := v.SentBursts()
	require.Len(t, bursts, 1)
	assert.Equal(t, []byte{0, 0, 1, 0, 1, 1}, bursts[0])
}
