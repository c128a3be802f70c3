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

// Package gpio provides a Frontend for a directly attached LF reader
// board: the modulation transistor hangs off a GPIO pin and the
// peak-detected antenna signal feeds an SPI ADC.
//
// Protocol timing comes from the host's monotonic clock. A stock Linux
// kernel preempts freely, so reliable operation needs the polling
// goroutine pinned to an isolated core; expect LIW retries to do real
// work otherwise.
package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	em4x70 "github.com/ZaparooProject/go-em4x70"
)

// ticksNum/ticksDen scale microseconds to the protocol clock: 1.5 ticks
// per us.
const (
	ticksNum = 3
	ticksDen = 2
)

// Config selects the board's pins and buses.
type Config struct {
	// ModPin is the GPIO name driving the modulation transistor,
	// e.g. "GPIO18".
	ModPin string
	// SPIPort is the SPI port the ADC sits on; empty selects the
	// first available port.
	SPIPort string
	// SPIFreq is the ADC clock; zero defaults to 2 MHz.
	SPIFreq physic.Frequency
}

// Frontend implements em4x70.Frontend over periph.io GPIO and SPI.
type Frontend struct {
	modPin  gpio.PinIO
	spiPort spi.PortCloser
	adc     spi.Conn

	epoch time.Time

	abort atomic.Bool
}

// New initialises the periph host and claims the board's pins.
func New(cfg Config) (*Frontend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(cfg.ModPin)
	if pin == nil {
		return nil, fmt.Errorf("modulation pin %q not found", cfg.ModPin)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", cfg.SPIPort, err)
	}

	freq := cfg.SPIFreq
	if freq == 0 {
		freq = 2 * physic.MegaHertz
	}

	conn, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect to ADC: %w", err)
	}

	return &Frontend{
		modPin:  pin,
		spiPort: port,
		adc:     conn,
	}, nil
}

// SetupRead implements em4x70.Frontend.
func (f *Frontend) SetupRead() error {
	if err := f.modPin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to release modulation pin: %w", err)
	}

	// let the resonant antenna settle
	time.Sleep(50 * time.Millisecond)

	f.epoch = time.Now()
	return nil
}

// Finalize implements em4x70.Frontend.
func (f *Frontend) Finalize() {
	_ = f.modPin.Out(gpio.Low)
}

// Sample implements em4x70.Frontend with a single-byte ADC exchange.
func (f *Frontend) Sample() byte {
	var rx [1]byte
	if err := f.adc.Tx([]byte{0x00}, rx[:]); err != nil {
		return 0
	}
	return rx[0]
}

// ModHigh implements em4x70.Frontend.
func (f *Frontend) ModHigh() {
	_ = f.modPin.Out(gpio.High)
}

// ModLow implements em4x70.Frontend.
func (f *Frontend) ModLow() {
	_ = f.modPin.Out(gpio.Low)
}

// Ticks implements em4x70.Frontend from the monotonic clock.
func (f *Frontend) Ticks() uint32 {
	us := time.Since(f.epoch).Microseconds()
	return uint32(us * ticksNum / ticksDen)
}

// WaitTicks implements em4x70.Frontend by spinning on the monotonic
// clock. Sleeping would hand the scheduler a chance to overshoot by
// milliseconds, which the air interface cannot absorb.
func (f *Frontend) WaitTicks(n uint32) {
	target := f.Ticks() + n
	for f.Ticks() < target {
	}
}

// WatchdogKick implements em4x70.Frontend. Nothing to kick host-side.
func (*Frontend) WatchdogKick() {}

// RequestAbort asks the current operation to stop at its next abort
// check.
func (f *Frontend) RequestAbort() {
	f.abort.Store(true)
}

// AbortRequested implements em4x70.Frontend.
func (f *Frontend) AbortRequested() bool {
	return f.abort.Load()
}

// Close implements em4x70.Frontend.
func (f *Frontend) Close() error {
	if err := f.spiPort.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port: %w", err)
	}
	return nil
}

// Type returns the front-end type.
func (*Frontend) Type() em4x70.FrontendType {
	return em4x70.FrontendGPIO
}
