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

//go:build !linux

package netutil

import "syscall"

// dontFragmentControl is a no-op outside Linux: Don't-Fragment is a best-effort
// hint this relay's loopback-facing client path never needs, and the upstream
// egress path degrades gracefully to default fragmentation behavior.
func dontFragmentControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
