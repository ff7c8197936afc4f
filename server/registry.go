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

import "sync"

// Registry tracks the single live Session permitted per client. A second
// connection presenting the same client's token displaces the first: the
// old session is closed and the new one takes its place.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register installs s as clientID's live session, returning the session it
// displaced, if any.
func (r *Registry) Register(clientID string, s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.sessions[clientID]
	r.sessions[clientID] = s
	return old
}

// Remove deletes clientID's entry, but only if it is still s: a session that
// has already been displaced by a newer one must not clobber the newer
// entry on its own, possibly delayed, teardown.
func (r *Registry) Remove(clientID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[clientID]; ok && current == s {
		delete(r.sessions, clientID)
	}
}

// Get returns the currently live session for clientID, if any.
func (r *Registry) Get(clientID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[clientID]
	return s, ok
}

// Len reports the number of currently registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
