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

// Command em4x70 exercises an EM4x70 tag through a serial or GPIO
// front-end: identify it, authenticate, write words, unlock with a PIN,
// program a new PIN or key, or brute-force a partial key word.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	em4x70 "github.com/ZaparooProject/go-em4x70"
	"github.com/ZaparooProject/go-em4x70/frontend/gpio"
	"github.com/ZaparooProject/go-em4x70/frontend/uart"
)

var (
	flagDevice  string
	flagModPin  string
	flagOp      string
	flagParity  bool
	flagDebug   bool
	flagRMDelay int

	flagRnd   string
	flagFrnd  string
	flagWord  uint
	flagAddr  uint
	flagPin   uint
	flagKey   string
	flagStart uint
)

func init() {
	flag.StringVar(&flagDevice, "device", "", "Serial port of the reader pod (lists candidates if empty)")
	flag.StringVar(&flagModPin, "mod-pin", "", "Use the GPIO front-end with this modulation pin (e.g. GPIO18)")
	flag.StringVar(&flagOp, "op", "info", "Operation: info, auth, write, unlock, setpin, setkey, brute")
	flag.BoolVar(&flagParity, "parity", false, "Tag expects a command parity bit (EM4170 variant)")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug logging of the air interface")
	flag.IntVar(&flagRMDelay, "rm-delay", 40, "Carrier cycles between listen window and RM (24-48)")

	flag.StringVar(&flagRnd, "rnd", "", "56-bit challenge as 7 hex bytes (auth, brute)")
	flag.StringVar(&flagFrnd, "frnd", "", "28-bit f(RN) as 4 hex bytes (auth, brute)")
	flag.UintVar(&flagWord, "word", 0, "16-bit word to write (write)")
	flag.UintVar(&flagAddr, "addr", 0, "Block address (write: 0-15, brute: 7-9)")
	flag.UintVar(&flagPin, "pin", 0, "32-bit PIN (unlock, setpin)")
	flag.StringVar(&flagKey, "key", "", "96-bit crypto key as 12 hex bytes (setkey)")
	flag.UintVar(&flagStart, "start", 0, "Starting key candidate (brute)")
}

type abortable interface {
	RequestAbort()
}

func openFrontend() (em4x70.Frontend, error) {
	if flagModPin != "" {
		fe, err := gpio.New(gpio.Config{ModPin: flagModPin})
		if err != nil {
			return nil, fmt.Errorf("gpio front-end: %w", err)
		}
		return fe, nil
	}

	if flagDevice == "" {
		ports, err := uart.Ports()
		if err != nil {
			return nil, err
		}
		if len(ports) == 0 {
			return nil, fmt.Errorf("no serial ports found; pass -device or -mod-pin")
		}
		fmt.Println("Candidate ports:")
		for _, p := range ports {
			fmt.Printf("  %s\n", p)
		}
		return nil, fmt.Errorf("pass -device to select a port")
	}

	fe, err := uart.New(flagDevice)
	if err != nil {
		return nil, fmt.Errorf("uart front-end: %w", err)
	}
	return fe, nil
}

func parseHex(s string, want int, what string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", what, err)
	}
	if len(b) != want {
		return nil, fmt.Errorf("%s must be %d hex bytes, got %d", what, want, len(b))
	}
	return b, nil
}

func challenge() ([7]byte, [4]byte, error) {
	var rnd [7]byte
	var frnd [4]byte

	r, err := parseHex(flagRnd, 7, "rnd")
	if err != nil {
		return rnd, frnd, err
	}
	f, err := parseHex(flagFrnd, 4, "frnd")
	if err != nil {
		return rnd, frnd, err
	}

	copy(rnd[:], r)
	copy(frnd[:], f)
	return rnd, frnd, nil
}

func printTag(tag *em4x70.TagData) {
	id := tag.ID()
	um1 := tag.UM1()
	um2 := tag.UM2()
	fmt.Printf("ID:   %02X%02X%02X%02X\n", id[3], id[2], id[1], id[0])
	fmt.Printf("UM1:  %02X%02X%02X%02X (lock bits %02b)\n", um1[3], um1[2], um1[1], um1[0], tag.LockBits())
	fmt.Printf("UM2:  %X\n", um2[:])
}

func run() error {
	flag.Parse()

	if flagDebug {
		em4x70.SetDebugEnabled(true)
	}

	fe, err := openFrontend()
	if err != nil {
		return err
	}
	defer func() { _ = fe.Close() }()

	// forward interrupts as an abort request so a brute-force run
	// stops at a candidate boundary instead of mid-frame
	if a, ok := fe.(abortable); ok {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			fmt.Println("\nStopping...")
			a.RequestAbort()
		}()
	}

	rdr, err := em4x70.New(fe,
		em4x70.WithRMDelay(flagRMDelay),
		em4x70.WithProgress(func(k uint16) {
			fmt.Printf("Trying: %04X\r", k)
		}),
	)
	if err != nil {
		return err
	}

	switch flagOp {
	case "info":
		info, status, err := rdr.Info(flagParity)
		if err != nil {
			return fmt.Errorf("info failed (%s): %w", status, err)
		}
		variant := "V4070/EM4070"
		if info.EM4170 {
			variant = "EM4170"
		}
		fmt.Printf("Tag variant: %s\n", variant)
		printTag(&info.Tag)

	case "auth":
		rnd, frnd, err := challenge()
		if err != nil {
			return err
		}
		grn, status, err := rdr.Auth(flagParity, rnd, frnd)
		if err != nil {
			return fmt.Errorf("auth failed (%s): %w", status, err)
		}
		fmt.Printf("g(RN): %X\n", grn[:])

	case "write":
		if flagWord > 0xFFFF || flagAddr > 0xF {
			return fmt.Errorf("write needs -word <= 0xFFFF and -addr <= 15")
		}
		tag, status, err := rdr.WriteWord(flagParity, uint16(flagWord), byte(flagAddr))
		if err != nil {
			return fmt.Errorf("write failed (%s): %w", status, err)
		}
		printTag(&tag)

	case "unlock":
		tag, status, err := rdr.Unlock(flagParity, uint32(flagPin))
		if err != nil {
			return fmt.Errorf("unlock failed (%s): %w", status, err)
		}
		printTag(&tag)

	case "setpin":
		tag, status, err := rdr.SetPIN(flagParity, uint32(flagPin))
		if err != nil {
			return fmt.Errorf("setpin failed (%s): %w", status, err)
		}
		printTag(&tag)

	case "setkey":
		k, err := parseHex(flagKey, 12, "key")
		if err != nil {
			return err
		}
		var key [12]byte
		copy(key[:], k)
		tag, status, err := rdr.SetKey(flagParity, key)
		if err != nil {
			return fmt.Errorf("setkey failed (%s): %w", status, err)
		}
		printTag(&tag)

	case "brute":
		rnd, frnd, err := challenge()
		if err != nil {
			return err
		}
		if flagAddr < 7 || flagAddr > 9 {
			return fmt.Errorf("brute needs -addr in 7-9")
		}
		key, status, err := rdr.Brute(flagParity, byte(flagAddr), rnd, frnd, uint16(flagStart))
		if err != nil {
			return fmt.Errorf("brute failed (%s): %w", status, err)
		}
		fmt.Printf("\nRecovered key word: %04X\n", key)

	default:
		return fmt.Errorf("unknown operation %q", flagOp)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
