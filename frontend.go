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

// Frontend defines the interface to an LF reader front-end.
// This can be implemented by a streamed serial pod, a directly attached
// GPIO/ADC board, or a simulator for testing.
//
// The tick counter runs at 1.5 ticks per microsecond, so one RF carrier
// period at 125 kHz is 12 ticks. Sample returns the most recent reading
// from the peak-detected low-frequency ADC path, centred around 127.
//
// Ticks and Sample sit inside busy-wait loops during a transaction and
// must not block, sleep or allocate.
type Frontend interface {
	// SetupRead configures the front-end for reader mode: carrier on at
	// 125 kHz (divisor 95), antenna settled, modulation released and the
	// tick counter running.
	SetupRead() error

	// Finalize tears the field down and stops the tick counter.
	Finalize()

	// Sample returns the latest ADC sample.
	Sample() byte

	// ModHigh asserts the modulation line, dropping the carrier.
	ModHigh()

	// ModLow releases the modulation line, restoring the carrier.
	ModLow()

	// Ticks returns the free-running tick counter.
	Ticks() uint32

	// WaitTicks blocks until n ticks have elapsed.
	WaitTicks(n uint32)

	// WatchdogKick resets the hardware watchdog where one exists.
	WatchdogKick()

	// AbortRequested reports whether the user or host has asked the
	// current operation to stop. Only long-running operations poll it.
	AbortRequested() bool

	// Close releases the front-end.
	Close() error
}

// FrontendType identifies a Frontend implementation.
type FrontendType string

const (
	// FrontendUART is a serial-tethered streaming front-end.
	FrontendUART FrontendType = "uart"
	// FrontendGPIO is a directly attached GPIO/SPI front-end.
	FrontendGPIO FrontendType = "gpio"
	// FrontendMock is a simulated front-end for testing.
	FrontendMock FrontendType = "mock"
)
