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

// Package netutil holds the platform-specific socket knobs this relay needs
// that the standard library doesn't expose portably, built in the style of
// the retrieved pack's per-OS socket option files (e.g. a Linux-tagged file
// setting a socket option via golang.org/x/sys/unix, with a no-op fallback
// elsewhere).
package netutil

import "net"

// MinSocketBuffer is the minimum send/receive buffer size configured on UDP
// sockets that carry DNS datagrams: at least one maximum-size UDP datagram.
const MinSocketBuffer = 65507

// DontFragmentDialer returns a net.Dialer that sets the Don't-Fragment bit
// on the ephemeral UDP socket it creates.
func DontFragmentDialer() net.Dialer {
	return net.Dialer{Control: dontFragmentControl}
}

// SetUDPBuffers grows conn's OS-level send/receive buffers to at least
// MinSocketBuffer bytes. Best-effort: failures are returned to the caller to
// log, not treated as fatal.
func SetUDPBuffers(conn *net.UDPConn) error {
	if err := conn.SetReadBuffer(MinSocketBuffer); err != nil {
		return err
	}
	return conn.SetWriteBuffer(MinSocketBuffer)
}
