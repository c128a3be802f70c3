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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-em4x70/internal/syncutil"
)

// Reader exposes the EM4x70 command set over a single front-end. Each
// method runs one complete field cycle: power up, signal check, tag
// probe, the operation itself, and teardown. Operations are serialised
// with a mutex; concurrent callers queue rather than interleave, since
// the air interface cannot multiplex.
type Reader struct {
	mu  syncutil.Mutex
	fe  Frontend
	cfg config
}

// New creates a Reader over the given front-end.
func New(fe Frontend, opts ...Option) (*Reader, error) {
	r := &Reader{
		fe:  fe,
		cfg: defaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Close releases the front-end.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fe != nil {
		if err := r.fe.Close(); err != nil {
			return fmt.Errorf("failed to close front-end: %w", err)
		}
	}
	return nil
}

// run executes op inside a full field cycle and returns the session so
// callers can harvest the tag image.
func (r *Reader) run(parity bool, op func(*Session) error) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := newSession(r.fe, parity, r.cfg)
	if err := s.begin(); err != nil {
		return s, err
	}
	defer s.end()

	return s, op(s)
}

// TagInfo is the result of an Info call.
type TagInfo struct {
	// Tag is the image read from the tag. ID and UM1 are valid
	// whenever Info succeeded; UM2 only when EM4170 is set.
	Tag TagData

	// EM4170 reports whether UM2 was readable, which distinguishes an
	// EM4170 from a V4070/EM4070.
	EM4170 bool
}

// Valid returns the prefix of the image that a successful Info call
// refreshed: 32 bytes for an EM4170, 20 for a V4070.
func (i *TagInfo) Valid() []byte {
	b := i.Tag.Bytes()
	if i.EM4170 {
		return b[:]
	}
	return b[:20]
}

// Info identifies the tag in the field: it reads ID and UM1, and probes
// UM2 to detect the tag variant.
func (r *Reader) Info(parity bool) (*TagInfo, Status, error) {
	info := &TagInfo{}

	s, err := r.run(parity, func(s *Session) error {
		em4170, err := s.identify()
		info.EM4170 = em4170
		return err
	})
	info.Tag = s.tag

	return info, statusOf(err), err
}

// Detect reports whether an EM4x70 tag is present in the field, without
// exchanging any command. Useful for a broad tag-type sweep.
func (r *Reader) Detect() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := newSession(r.fe, false, r.cfg)
	if err := s.begin(); err != nil {
		if errors.Is(err, ErrNoSignal) || errors.Is(err, ErrNoTag) {
			return false, nil
		}
		return false, err
	}
	s.end()
	return true, nil
}

// Auth runs one authentication exchange and returns the tag's 20-bit
// g(RN), left-aligned in three bytes.
func (r *Reader) Auth(parity bool, rnd [7]byte, frnd [4]byte) ([3]byte, Status, error) {
	var grn [3]byte

	_, err := r.run(parity, func(s *Session) error {
		var err error
		grn, err = s.authenticate(rnd, frnd)
		return err
	})

	return grn, statusOf(err), err
}

// WriteWord writes a 16-bit word to a block address (0-15) and re-reads
// the tag afterwards. The returned image reflects the tag's contents
// after the write.
func (r *Reader) WriteWord(parity bool, word uint16, address byte) (TagData, Status, error) {
	s, err := r.run(parity, func(s *Session) error {
		if err := s.writeWord(word, address); err != nil {
			return err
		}
		// readback is best effort; the write already succeeded
		if err := s.readID(); err == nil {
			s.refresh()
		}
		return nil
	})

	return s.tag, statusOf(err), err
}

// Unlock sends the tag's PIN to unlock it, then re-reads user memory.
// The air interface does not distinguish a newly unlocked tag from one
// that was already unlocked; success means the tag acknowledged and
// re-issued its ID.
func (r *Reader) Unlock(parity bool, pin uint32) (TagData, Status, error) {
	s, err := r.run(parity, func(s *Session) error {
		if err := s.readID(); err != nil {
			return err
		}
		if err := s.sendPIN(pin); err != nil {
			return err
		}
		// the ID does not change; refresh the rest best effort
		s.refresh()
		return nil
	})

	return s.tag, statusOf(err), err
}

// SetPIN programs a new PIN into the tag and confirms it by unlocking.
func (r *Reader) SetPIN(parity bool, pin uint32) (TagData, Status, error) {
	s, err := r.run(parity, func(s *Session) error {
		if err := s.readID(); err != nil {
			return err
		}
		if err := s.writePIN(pin); err != nil {
			return err
		}
		s.refresh()
		return nil
	})

	return s.tag, statusOf(err), err
}

// SetKey programs the 96-bit crypto key into blocks 9..4. Verifying the
// new key takes a subsequent Auth with a challenge pair computed from
// it; the key itself cannot be read back.
func (r *Reader) SetKey(parity bool, key [12]byte) (TagData, Status, error) {
	s, err := r.run(parity, func(s *Session) error {
		if err := s.readID(); err != nil {
			return err
		}
		return s.writeKey(key)
	})

	return s.tag, statusOf(err), err
}

// Brute searches the 16-bit key word at block address 7, 8 or 9 by
// repeated authentication, starting from start. Returns the recovered
// word. The search honours the front-end abort line once per candidate.
func (r *Reader) Brute(parity bool, address byte, rnd [7]byte, frnd [4]byte, start uint16) (uint16, Status, error) {
	var key uint16

	_, err := r.run(parity, func(s *Session) error {
		var err error
		key, err = s.bruteForce(address, rnd, frnd, start)
		return err
	})

	return key, statusOf(err), err
}
