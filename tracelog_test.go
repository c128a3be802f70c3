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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceLogRecordsTransmit(t *testing.T) {
	t.Parallel()

	var l traceLog
	l.sentBit(100, 1)
	l.sentBit(500, 0)
	l.sentBit(900, 1)
	l.sentBitEnd(1300)

	assert.Equal(t, uint32(100), l.transmit.startTick)
	assert.Equal(t, uint32(1300), l.transmit.endTick)
	assert.Equal(t, 3, l.transmit.used)
	assert.Equal(t, []byte{1, 0, 1}, l.transmit.bits[:3])
}

func TestTraceLogRecordsReceive(t *testing.T) {
	t.Parallel()

	var l traceLog
	l.receiveStart(2000)
	l.receiveStart(3000) // only the first start sticks
	l.receivedBits([]byte{1, 1, 0})
	l.receivedBits([]byte{0, 1})
	l.receiveEnd(4000)

	assert.Equal(t, uint32(2000), l.receive.startTick)
	assert.Equal(t, uint32(4000), l.receive.endTick)
	assert.Equal(t, 5, l.receive.used)
	assert.Equal(t, []byte{1, 1, 0, 0, 1}, l.receive.bits[:5])
}

func TestTraceLogReset(t *testing.T) {
	t.Parallel()

	var l traceLog
	l.sentBit(1, 1)
	l.receivedBits([]byte{1})
	l.reset()

	assert.Zero(t, l.transmit.used)
	assert.Zero(t, l.receive.used)
	assert.Zero(t, l.transmit.startTick)
}

func TestTraceLogCapacityCoversLongestExchange(t *testing.T) {
	t.Parallel()

	var l traceLog
	// the longest transmission: RM(2) + AUTH(95)
	for i := 0; i < 2+95; i++ {
		l.sentBit(uint32(i), 1)
	}
	require.Equal(t, 97, l.transmit.used)

	// overflowing writes are dropped, not panicking
	for i := 0; i < maxLogBits; i++ {
		l.sentBit(uint32(100+i), 0)
	}
	assert.Equal(t, maxLogBits, l.transmit.used)
}
