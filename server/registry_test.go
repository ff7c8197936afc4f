// Copyright 2025 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &Session{ClientID: "alice"}

	displaced := r.Register("alice", s)
	require.Nil(t, displaced)

	got, ok := r.Get("alice")
	require.True(t, ok)
	require.Same(t, s, got)
	require.Equal(t, 1, r.Len())
}

func TestRegistryRegisterDisplacesExistingSession(t *testing.T) {
	r := NewRegistry()
	first := &Session{ClientID: "alice"}
	second := &Session{ClientID: "alice"}

	r.Register("alice", first)
	displaced := r.Register("alice", second)

	require.Same(t, first, displaced)

	got, ok := r.Get("alice")
	require.True(t, ok)
	require.Same(t, second, got)
	require.Equal(t, 1, r.Len())
}

func TestRegistryRemoveOnlyDeletesCurrentSession(t *testing.T) {
	r := NewRegistry()
	first := &Session{ClientID: "alice"}
	second := &Session{ClientID: "alice"}

	r.Register("alice", first)
	r.Register("alice", second)

	// The displaced session's own teardown must not clobber the newer entry.
	r.Remove("alice", first)
	got, ok := r.Get("alice")
	require.True(t, ok)
	require.Same(t, second, got)

	r.Remove("alice", second)
	_, ok = r.Get("alice")
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}
