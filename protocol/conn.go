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

package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotBinary is returned by Conn.ReadFrame when the next WebSocket message
// on the wire is not a BINARY message.
var ErrNotBinary = errors.New("protocol: message is not binary")

// Conn wraps a *websocket.Conn with the framing and write-serialization
// discipline both the client Upstream Session and the server per-session
// socket require: concurrent writers never interleave bytes within one
// WebSocket message, and every read yields one decoded frame or a terminal
// error.
//
// A *websocket.Conn is not safe for concurrent use; Conn guards writes with
// writeMu.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	readBuf bytes.Buffer
}

// NewConn wraps ws. The caller retains ownership of ws and must not use it
// directly once wrapped.
func NewConn(ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws}
	c.readBuf.Grow(ReadBufferSize)
	return c
}

// WriteFrame serializes id and payload and sends them as a single BINARY
// message with the end-of-message flag set (gorilla/websocket always sets
// it for WriteMessage). Safe for concurrent use.
func (c *Conn) WriteFrame(id uint32, payload []byte) error {
	buf, err := EncodeFrame(id, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, buf)
}

// WriteAuthToken sends the mandatory first-frame TEXT auth message.
func (c *Conn) WriteAuthToken(token string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(token))
}

// ReadAuthToken reads exactly one message and returns its UTF-8 payload as
// the presented token. It is an error if the message is not TEXT.
func (c *Conn) ReadAuthToken() (string, error) {
	msgType, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", err
	}
	if msgType != websocket.TextMessage {
		return "", fmt.Errorf("protocol: auth message is not text (type %d)", msgType)
	}
	return string(data), nil
}

// ReadFrame reads the next WebSocket message and decodes it as a framed
// message. It returns ErrNotBinary for a TEXT frame and a wrapped error for a
// peer-initiated close.
//
// The returned payload is a copy and stays valid after later calls to
// ReadFrame. Not safe for concurrent use: each Conn has a single reader.
func (c *Conn) ReadFrame() (id uint32, payload []byte, err error) {
	msgType, r, err := c.ws.NextReader()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return 0, nil, fmt.Errorf("protocol: connection closed: %w", err)
		}
		return 0, nil, err
	}
	if msgType != websocket.BinaryMessage {
		return 0, nil, ErrNotBinary
	}
	c.readBuf.Reset()
	if _, err := c.readBuf.ReadFrom(r); err != nil {
		return 0, nil, fmt.Errorf("protocol: failed to read message: %w", err)
	}
	id, framePayload, err := DecodeFrame(c.readBuf.Bytes())
	if err != nil {
		return 0, nil, err
	}
	// Copy out: readBuf is reused by the next ReadFrame call.
	payload = append([]byte(nil), framePayload...)
	return id, payload, nil
}

// CloseNormal closes the underlying connection with WebSocket status 1000.
func (c *Conn) CloseNormal() error {
	return c.closeWithStatus(websocket.CloseNormalClosure, "")
}

// CloseProtocolError closes the underlying connection with WebSocket status 1002.
func (c *Conn) CloseProtocolError(reason string) error {
	return c.closeWithStatus(websocket.CloseProtocolError, reason)
}

// ClosePolicyViolation closes the underlying connection with WebSocket status 1008.
func (c *Conn) ClosePolicyViolation(reason string) error {
	return c.closeWithStatus(websocket.ClosePolicyViolation, reason)
}

func (c *Conn) closeWithStatus(code int, reason string) error {
	c.writeMu.Lock()
	message := websocket.FormatCloseMessage(code, reason)
	writeErr := c.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	closeErr := c.ws.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// Underlying returns the wrapped *websocket.Conn, for deadline and address calls.
func (c *Conn) Underlying() *websocket.Conn {
	return c.ws
}
