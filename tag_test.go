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
)

func TestTagDataLayout(t *testing.T) {
	t.Parallel()

	var tag TagData
	for i := range tag.data {
		tag.data[i] = byte(i)
	}

	assert.Equal(t, [4]byte{0, 1, 2, 3}, tag.UM1())
	assert.Equal(t, [4]byte{4, 5, 6, 7}, tag.ID())
	assert.Equal(t, [12]byte{8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, tag.Key())
	assert.Equal(t, [8]byte{24, 25, 26, 27, 28, 29, 30, 31}, tag.UM2())
}

func TestTagDataLockBits(t *testing.T) {
	t.Parallel()

	var tag TagData
	tag.data[3] = 0xC0
	assert.Equal(t, byte(0x03), tag.LockBits())

	tag.data[3] = 0x80
	assert.Equal(t, byte(0x02), tag.LockBits())

	tag.data[3] = 0x3F
	assert.Equal(t, byte(0x00), tag.LockBits())
}

func TestTagDataReset(t *testing.T) {
	t.Parallel()

	var tag TagData
	tag.data[5] = 0xAA
	tag.reset()
	assert.Equal(t, [32]byte{}, tag.data)
}

func TestTagDataString(t *testing.T) {
	t.Parallel()

	var tag TagData
	tag.data[0] = 0xAB
	s := tag.String()
	assert.Len(t, s, 64)
	assert.Equal(t, "ab", s[:2])
}
