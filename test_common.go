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

//go:build !prod

package em4x70

import (
	"testing"

	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-em4x70/internal/testing"
)

// newTestSession creates a session over a simulated tag and brings the
// field up, leaving it aligned past the presence probe. The caller
// queues responses on the returned VirtualTag before invoking
// operations.
func newTestSession(t *testing.T) (*Session, *testutil.VirtualTag) {
	t.Helper()

	vt := testutil.NewVirtualTag()
	s := newSession(vt, false, defaultConfig())
	require.NoError(t, s.begin(), "session begin against idle tag")
	t.Cleanup(s.end)

	return s, vt
}

// newTestReader creates a Reader over a simulated tag.
func newTestReader(t *testing.T, opts ...Option) (*Reader, *testutil.VirtualTag) {
	t.Helper()

	vt := testutil.NewVirtualTag()
	r, err := New(vt, opts...)
	require.NoError(t, err)

	return r, vt
}
