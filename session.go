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

import "fmt"

// Session holds the state of one top-level operation against one tag:
// the front-end, the parity mode, the tag image being refreshed and the
// transaction trace. It lives from field setup to teardown and is never
// shared between operations.
type Session struct {
	fe     Frontend
	parity bool

	tag TagData
	log traceLog

	// tuning, copied from the Reader configuration
	rmDelayFc     int
	liwRetries    int
	highThreshold byte
	lowThreshold  byte
	progress      func(key uint16)

	// authFn runs one authentication attempt; the brute-force loop
	// goes through it so tests can substitute a model of the tag.
	authFn func(rnd [7]byte, frnd [4]byte) ([3]byte, error)
}

func newSession(fe Frontend, parity bool, cfg config) *Session {
	s := &Session{
		fe:            fe,
		parity:        parity,
		rmDelayFc:     cfg.rmDelayFc,
		liwRetries:    cfg.liwRetries,
		highThreshold: 127 + cfg.noiseThreshold,
		lowThreshold:  127 - cfg.noiseThreshold,
		progress:      cfg.progress,
	}
	s.authFn = s.authenticate
	return s
}

// begin powers the field, waits for signal and confirms a tag is
// answering. The tag image starts zeroed; on any failure the field is
// torn down before returning.
func (s *Session) begin() error {
	s.tag.reset()

	if err := s.fe.SetupRead(); err != nil {
		return fmt.Errorf("front-end setup failed: %w", err)
	}
	s.fe.WatchdogKick()

	if !s.signalPresent() {
		s.fe.Finalize()
		return ErrNoSignal
	}

	if !s.detectTag() {
		s.fe.Finalize()
		return ErrNoTag
	}

	return nil
}

// end tears the field down.
func (s *Session) end() {
	s.fe.Finalize()
}

// Tag returns the session's tag image.
func (s *Session) Tag() *TagData {
	return &s.tag
}
