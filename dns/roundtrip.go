// Copyright 2023 Jigsaw Operations LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"golang.org/x/net/dns/dnsmessage"

	"github.com/outline-dns/dnsrelay/transport"
)

// RoundTripper is an interface representing the ability to execute a
// single DNS transaction, obtaining the Response for a given Request.
// This abstraction helps hide the underlying transport protocol.
type RoundTripper interface {
	RoundTrip(ctx context.Context, q dnsmessage.Question) (*dnsmessage.Message, error)
}

// FuncRoundTripper is a [RoundTripper] that uses the given function for the round trip.
type FuncRoundTripper func(ctx context.Context, q dnsmessage.Question) (*dnsmessage.Message, error)

// RoundTrip implements the [RoundTripper] interface.
func (f FuncRoundTripper) RoundTrip(ctx context.Context, q dnsmessage.Question) (*dnsmessage.Message, error) {
	return f(ctx, q)
}

// NewQuestion is a convenience function to create a [dnsmessage.Question].
func NewQuestion(domain string, qtype dnsmessage.Type) (*dnsmessage.Question, error) {
	name, err := dnsmessage.NewName(domain)
	if err != nil {
		return nil, fmt.Errorf("cannot parse domain name: %w", err)
	}
	return &dnsmessage.Question{
		Name:  name,
		Type:  qtype,
		Class: dnsmessage.ClassINET,
	}, nil
}

const maxMsgSize = 65535

// Maximum DNS packet size over UDP. Value taken from https://dnsflagday.net/2020/.
const maxDNSPacketSize = 1232

func equalASCIIName(x, y dnsmessage.Name) bool {
	if x.Length != y.Length {
		return false
	}
	for i := 0; i < int(x.Length); i++ {
		a := x.Data[i]
		b := y.Data[i]
		if 'A' <= a && a <= 'Z' {
			a += 0x20
		}
		if 'A' <= b && b <= 'Z' {
			b += 0x20
		}
		if a != b {
			return false
		}
	}
	return true
}

func checkResponse(reqID uint16, reqQues dnsmessage.Question, respHdr dnsmessage.Header, respQs []dnsmessage.Question) error {
	if !respHdr.Response {
		return errors.New("response bit not set")
	}

	// https://datatracker.ietf.org/doc/html/rfc5452#section-4.3
	if reqID != respHdr.ID {
		return fmt.Errorf("message id does not match. Expected %v, got %v", reqID, respHdr.ID)
	}

	// https://datatracker.ietf.org/doc/html/rfc5452#section-4.2
	if len(respQs) == 0 {
		return errors.New("no questions in response")
	}
	respQ := respQs[0]
	if reqQues.Type != respQ.Type || reqQues.Class != respQ.Class || !equalASCIIName(reqQues.Name, respQ.Name) {
		return errors.New("response question doesn't match request")
	}

	return nil
}

// dnsPacketRoundtrip implements a DNS exchange over a datagram connection.
func dnsPacketRoundtrip(conn io.ReadWriter, q dnsmessage.Question) (*dnsmessage.Message, error) {
	id := uint16(rand.Uint32())
	buf, err := appendRequest(id, q, make([]byte, 0, 512))
	if err != nil {
		return nil, err
	}
	if len(buf) > maxMsgSize {
		return nil, fmt.Errorf("message too large: %v bytes", len(buf))
	}
	if _, err := conn.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	if cap(buf) >= maxDNSPacketSize {
		buf = buf[:maxDNSPacketSize]
	} else {
		buf = make([]byte, maxDNSPacketSize)
	}
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		buf = buf[:n]
		var msg dnsmessage.Message
		if err = msg.Unpack(buf); err != nil {
			return nil, fmt.Errorf("failed to unpack DNS response: %w", err)
		}
		if err := checkResponse(id, q, msg.Header, msg.Questions); err != nil {
			continue
		}
		return &msg, nil
	}
}

// appendRequest creates a DNS request using id and q and appends the bytes to buf.
func appendRequest(id uint16, q dnsmessage.Question, buf []byte) ([]byte, error) {
	b := dnsmessage.NewBuilder(buf, dnsmessage.Header{ID: id, RecursionDesired: true})
	if err := b.StartQuestions(); err != nil {
		return nil, err
	}
	if err := b.Question(q); err != nil {
		return nil, err
	}

	// Accept packets up to maxDNSPacketSize. RFC 6891.
	if err := b.StartAdditionals(); err != nil {
		return nil, err
	}
	var rh dnsmessage.ResourceHeader
	if err := rh.SetEDNS0(maxDNSPacketSize, dnsmessage.RCodeSuccess, false); err != nil {
		return nil, err
	}
	if err := b.OPTResource(rh, dnsmessage.OPTResource{}); err != nil {
		return nil, err
	}

	return b.Finish()
}

// NewUDPRoundTripper creates a [RoundTripper] that implements the DNS-over-UDP
// protocol, using a [transport.PacketDialer] for transport. It creates a new
// connection to the resolver for every request.
func NewUDPRoundTripper(pd transport.PacketDialer, resolverAddr string) RoundTripper {
	return FuncRoundTripper(func(ctx context.Context, q dnsmessage.Question) (*dnsmessage.Message, error) {
		conn, err := pd.Dial(ctx, resolverAddr)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		if deadline, ok := ctx.Deadline(); ok {
			conn.SetDeadline(deadline)
		}
		return dnsPacketRoundtrip(conn, q)
	})
}
