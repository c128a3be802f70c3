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

// Package uart provides a Frontend over a serial-tethered LF reader
// pod. The pod streams raw ADC samples at a fixed rate once reader mode
// is enabled; the engine's tick counter is derived from the sample
// index, so protocol timing stays locked to the pod's sample clock
// regardless of host scheduling jitter.
package uart

import (
	"bufio"
	"fmt"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	em4x70 "github.com/ZaparooProject/go-em4x70"
)

// Pod control bytes. The pod acknowledges none of them; it simply
// switches state and keeps streaming.
const (
	podSetupRead = 'R' // carrier on, divisor 95, start streaming
	podFinalize  = 'F' // field off, stop streaming
	podModHigh   = 'H' // assert modulation
	podModLow    = 'L' // release modulation
)

// ticksPerSample fixes the pod's streaming rate relative to the 1.5
// ticks/us protocol clock: one sample every 8 ticks is one and a half
// samples per 12-tick carrier cycle, comfortably inside the +/-8 period
// pulse tolerance.
const ticksPerSample = 8

const defaultBaudRate = 921600

// Frontend implements em4x70.Frontend over a streaming serial pod.
type Frontend struct {
	port     serial.Port
	reader   *bufio.Reader
	portName string

	samples uint32 // samples consumed since SetupRead
	last    byte

	abort atomic.Bool
}

// New opens the pod on the given serial port.
func New(portName string) (*Frontend, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: defaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(time.Second); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Frontend{
		port:     port,
		reader:   bufio.NewReaderSize(port, 4096),
		portName: portName,
	}, nil
}

// Ports lists candidate serial ports for pod detection.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

func (f *Frontend) control(b byte) {
	_, _ = f.port.Write([]byte{b})
}

// SetupRead implements em4x70.Frontend. The 50ms settle time for the
// resonant antenna happens host-side; the pod starts streaming as soon
// as the field is up, and the discarded settle samples keep the tick
// counter aligned.
func (f *Frontend) SetupRead() error {
	f.samples = 0
	f.reader.Reset(f.port)
	f.control(podSetupRead)

	settle := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(settle) {
		f.Sample()
	}
	return nil
}

// Finalize implements em4x70.Frontend.
func (f *Frontend) Finalize() {
	f.control(podFinalize)
}

// Sample implements em4x70.Frontend: it consumes the next streamed ADC
// byte, advancing the derived tick counter.
func (f *Frontend) Sample() byte {
	b, err := f.reader.ReadByte()
	if err != nil {
		// stream stalled; hold the last level so pulse measurement
		// runs into its timeout instead of spinning forever
		f.samples++
		return f.last
	}
	f.samples++
	f.last = b
	return b
}

// ModHigh implements em4x70.Frontend.
func (f *Frontend) ModHigh() {
	f.control(podModHigh)
}

// ModLow implements em4x70.Frontend.
func (f *Frontend) ModLow() {
	f.control(podModLow)
}

// Ticks implements em4x70.Frontend: ticks are the sample index scaled
// by the streaming rate. Polling the clock consumes a sample, so
// busy-wait loops advance at the pod's pace even when they never look
// at the signal.
func (f *Frontend) Ticks() uint32 {
	f.Sample()
	return f.samples * ticksPerSample
}

// WaitTicks implements em4x70.Frontend by consuming the corresponding
// number of streamed samples.
func (f *Frontend) WaitTicks(n uint32) {
	target := f.samples + n/ticksPerSample
	for f.samples < target {
		f.Sample()
	}
}

// WatchdogKick implements em4x70.Frontend. The pod has no watchdog.
func (*Frontend) WatchdogKick() {}

// RequestAbort asks the current operation to stop at its next abort
// check. Safe to call from another goroutine, typically a signal
// handler.
func (f *Frontend) RequestAbort() {
	f.abort.Store(true)
}

// AbortRequested implements em4x70.Frontend.
func (f *Frontend) AbortRequested() bool {
	return f.abort.Load()
}

// Close implements em4x70.Frontend.
func (f *Frontend) Close() error {
	if err := f.port.Close(); err != nil {
		return fmt.Errorf("failed to close port %s: %w", f.portName, err)
	}
	return nil
}

// Type returns the front-end type.
func (*Frontend) Type() em4x70.FrontendType {
	return em4x70.FrontendUART
}
