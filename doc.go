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

// Package em4x70 implements the reader side of the EM4x70/EM4170/V4070
// low-frequency (125 kHz) transponder protocol.
//
// The package drives an RF front-end through the narrow Frontend
// interface: it modulates the carrier to clock command bits out to a
// passive tag, aligns on the tag's listen windows, and demodulates the
// tag's pulse-width coded responses. On top of that air interface it
// exposes the transponder's command set: read ID and user memory,
// authenticate with a 96-bit challenge, unlock with a PIN, write 16-bit
// words, and brute-force a 16-bit partial key.
//
// A Reader serialises operations over a single Frontend:
//
//	fe, err := uart.New("/dev/ttyACM0")
//	if err != nil { ... }
//	rdr, err := em4x70.New(fe)
//	if err != nil { ... }
//	info, status, err := rdr.Info(false)
//
// All protocol timing is busy-polled against the front-end tick counter;
// no operation yields or sleeps between the listen window and the end of
// a transaction. Callers must therefore treat every Reader method as a
// blocking, timing-critical call.
package em4x70
