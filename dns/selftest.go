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

package dns

import (
	"context"
	"fmt"

	"golang.org/x/net/dns/dnsmessage"

	"github.com/outline-dns/dnsrelay/transport"
)

// SelfTestDomain is queried by SelfTest against a live listener to confirm
// the full client -> server -> upstream -> client path works end to end.
const SelfTestDomain = "example.com."

// SelfTest sends a single A query for SelfTestDomain to listenAddr (expected
// to be one of the client's own UDP listener addresses) and confirms a valid
// response comes back. It returns the resolved answer count on success.
func SelfTest(ctx context.Context, listenAddr string) (int, error) {
	question, err := NewQuestion(SelfTestDomain, dnsmessage.TypeA)
	if err != nil {
		return 0, fmt.Errorf("dns: failed to build self-test question: %w", err)
	}

	roundTripper := NewUDPRoundTripper(&transport.UDPDialer{}, listenAddr)
	msg, err := roundTripper.RoundTrip(ctx, *question)
	if err != nil {
		return 0, fmt.Errorf("dns: self-test query failed: %w", err)
	}
	if msg.RCode != dnsmessage.RCodeSuccess {
		return 0, fmt.Errorf("dns: self-test query returned RCode %v", msg.RCode)
	}
	return len(msg.Answers), nil
}
