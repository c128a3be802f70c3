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

import "encoding/hex"

// TagData is the reader's 32-byte image of a tag's EEPROM. Regions are
// refreshed by the read operations and only on a fully received
// response; a failed read leaves its region untouched.
//
// Layout by byte index:
//
//	[ 0.. 3]  UM1, with the two lock bits in the most significant bits
//	[ 4.. 7]  ID (32 bits)
//	[ 8..19]  crypto key (96 bits, six words at blocks 4..9)
//	[20..23]  PIN (blocks 10..11), not filled by any read
//	[24..31]  UM2 (64 bits, EM4170 only)
//
// All regions are little-endian with respect to the tag's transmission:
// byte 0 of a region holds the bits the tag sent last.
type TagData struct {
	data [32]byte
}

// Bytes returns a copy of the full 32-byte image.
func (t *TagData) Bytes() [32]byte {
	return t.data
}

// ID returns the 32-bit device ID region.
func (t *TagData) ID() [4]byte {
	var id [4]byte
	copy(id[:], t.data[4:8])
	return id
}

// UM1 returns user memory 1, including the lock bits.
func (t *TagData) UM1() [4]byte {
	var um [4]byte
	copy(um[:], t.data[0:4])
	return um
}

// UM2 returns user memory 2. Zero on V4070/EM4070 tags, which do not
// have it.
func (t *TagData) UM2() [8]byte {
	var um [8]byte
	copy(um[:], t.data[24:32])
	return um
}

// Key returns the crypto key region. The tag never sends the key back,
// so no operation fills this region and it stays zero.
func (t *TagData) Key() [12]byte {
	var key [12]byte
	copy(key[:], t.data[8:20])
	return key
}

// LockBits returns the two UM1 lock bits.
func (t *TagData) LockBits() byte {
	return t.data[3] >> 6
}

func (t *TagData) String() string {
	return hex.EncodeToString(t.data[:])
}

// reset zeroes the image. Every top-level operation starts from a clean
// image so stale regions are never mistaken for fresh reads.
func (t *TagData) reset() {
	t.data = [32]byte{}
}
