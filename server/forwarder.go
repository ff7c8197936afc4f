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
	"log/slog"
	"time"

	"github.com/outline-dns/dnsrelay/netutil"
	"github.com/outline-dns/dnsrelay/protocol"
)

// exchangeDeadline bounds how long a single upstream UDP round trip may take
// before the query is given up on.
const exchangeDeadline = 1 * time.Second

// maxResponseSize is the largest upstream UDP response this forwarder will
// read into memory.
const maxResponseSize = 65507

// Forwarder exchanges one framed query at a time with an upstream DNS
// resolver over a fresh, ephemeral UDP socket per query.
type Forwarder struct {
	UpstreamAddr string
	Log          *slog.Logger
}

// Handle resolves payload against the upstream resolver and writes the
// response back to conn under id. Failures are logged and otherwise
// swallowed: a client that never gets a reply for id will simply time out.
func (f *Forwarder) Handle(conn *protocol.Conn, id uint32, payload []byte) {
	dialer := netutil.DontFragmentDialer()
	upstream, err := dialer.Dial("udp", f.UpstreamAddr)
	if err != nil {
		f.Log.Warn("failed to dial upstream resolver", "upstream", f.UpstreamAddr, "error", err)
		return
	}
	defer upstream.Close()

	if err := upstream.SetDeadline(time.Now().Add(exchangeDeadline)); err != nil {
		f.Log.Warn("failed to set upstream deadline", "error", err)
	}

	if _, err := upstream.Write(payload); err != nil {
		f.Log.Warn("failed to write query to upstream resolver", "upstream", f.UpstreamAddr, "error", err)
		return
	}

	buf := make([]byte, maxResponseSize)
	n, err := upstream.Read(buf)
	if err != nil {
		f.Log.Debug("upstream resolver did not respond in time", "upstream", f.UpstreamAddr, "error", err)
		return
	}

	if err := conn.WriteFrame(id, buf[:n]); err != nil {
		f.Log.Warn("failed to write response frame", "error", err)
	}
}
