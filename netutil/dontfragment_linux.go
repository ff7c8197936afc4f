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

//go:build linux

package netutil

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// setDontFragment sets IP_MTU_DISCOVER to IP_PMTUDISC_DO, which sets the
// Don't-Fragment bit on every outbound datagram.
func setDontFragment(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, unix.IP_PMTUDISC_DO); err != nil {
		return fmt.Errorf("failed to set IP_MTU_DISCOVER: %w", err)
	}
	return nil
}

// dontFragmentControl is a net.ListenConfig.Control/net.Dialer.Control func
// that enables Don't-Fragment on the socket being created.
func dontFragmentControl(_, _ string, c syscall.RawConn) error {
	var sockoptErr error
	if err := c.Control(func(fd uintptr) { sockoptErr = setDontFragment(fd) }); err != nil {
		return fmt.Errorf("raw conn control failed: %w", err)
	}
	return sockoptErr
}
