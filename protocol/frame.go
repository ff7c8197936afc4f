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

// Package protocol implements the framed multiplexing protocol that runs
// over a single WebSocket connection between a relay client and server: a
// 4-byte correlation id followed by an opaque DNS wire-format payload.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CorrelationIDSize is the length, in bytes, of the id prefix on every framed message.
const CorrelationIDSize = 4

// MaxPayloadSize is the largest DNS payload this protocol will frame, matching the
// largest UDP datagram a DNS query or response can realistically occupy.
const MaxPayloadSize = 65507

// ReadBufferSize is the minimum capacity kept warm for inbound frame reads.
const ReadBufferSize = 32 * 1024

var (
	// ErrFrameTooShort is returned when a BINARY message is shorter than CorrelationIDSize.
	ErrFrameTooShort = errors.New("protocol: frame shorter than correlation id")
	// ErrPayloadTooLarge is returned when encoding a payload that exceeds MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds maximum size")
)

// EncodeFrame serializes id and payload into the wire layout: id as a
// little-endian uint32 followed immediately by payload. Byte order is an
// implementation choice opaque to the protocol's peers, fixed here so both
// client and server agree.
func EncodeFrame(id uint32, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, CorrelationIDSize+len(payload))
	binary.LittleEndian.PutUint32(buf, id)
	copy(buf[CorrelationIDSize:], payload)
	return buf, nil
}

// DecodeFrame splits a raw BINARY message into its correlation id and payload.
// The returned payload aliases msg; callers that retain it past the lifetime
// of msg's backing buffer must copy it.
func DecodeFrame(msg []byte) (id uint32, payload []byte, err error) {
	if len(msg) < CorrelationIDSize {
		return 0, nil, ErrFrameTooShort
	}
	return binary.LittleEndian.Uint32(msg[:CorrelationIDSize]), msg[CorrelationIDSize:], nil
}
