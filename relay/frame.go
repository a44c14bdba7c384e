package relay

import (
	"fmt"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

// FrameType mirrors the websocket opcodes the relay cares about.
type FrameType byte

const (
	DataFrame   FrameType = websocket.TextMessage
	BinaryFrame FrameType = websocket.BinaryMessage
	CloseFrame  FrameType = websocket.CloseMessage
	PingFrame   FrameType = websocket.PingMessage
	PongFrame   FrameType = websocket.PongMessage
)

func (t FrameType) String() string {
	switch t {
	case DataFrame:
		return "data"
	case BinaryFrame:
		return "binary"
	case CloseFrame:
		return "close"
	case PingFrame:
		return "ping"
	case PongFrame:
		return "pong"
	default:
		return fmt.Sprintf("frame(%d)", byte(t))
	}
}

// IsData reports whether frames of this type carry envelopes.
func (t FrameType) IsData() bool {
	return t == DataFrame || t == BinaryFrame
}

func (t FrameType) IsPing() bool  { return t == PingFrame }
func (t FrameType) IsPong() bool  { return t == PongFrame }
func (t FrameType) IsClose() bool { return t == CloseFrame }

// Frame is a single websocket message as seen by the relay. Close frames also
// carry the close code, zero meaning a normal closure.
type Frame struct {
	kind FrameType
	data []byte
	code int
}

func (f Frame) Type() FrameType { return f.kind }

func (f Frame) Data() []byte { return f.data }

// Code is the close code of a close frame.
func (f Frame) Code() int {
	if f.kind != CloseFrame {
		return 0
	}
	if f.code == 0 {
		return websocket.CloseNormalClosure
	}
	return f.code
}

// Envelope decodes the payload of a data or binary frame.
func (f Frame) Envelope() (Envelope, error) {
	if !f.kind.IsData() {
		return Envelope{}, errors.Wrapf(ErrMalformedEnvelope, "%s frame carries no envelope", f.kind)
	}
	return DecodeEnvelope(f.data)
}

func (f Frame) String() string {
	if f.kind == CloseFrame {
		return fmt.Sprintf("%s(%d) %q", f.kind, f.Code(), f.data)
	}
	return fmt.Sprintf("%s %q", f.kind, f.data)
}

func NewFrame(ft FrameType, data []byte) Frame {
	return Frame{kind: ft, data: data}
}

func NewDataFrame(data []byte) Frame   { return NewFrame(DataFrame, data) }
func NewBinaryFrame(data []byte) Frame { return NewFrame(BinaryFrame, data) }
func NewPingFrame(data []byte) Frame   { return NewFrame(PingFrame, data) }
func NewPongFrame(data []byte) Frame   { return NewFrame(PongFrame, data) }

// NewCloseFrame builds a close frame with the given close code and reason.
func NewCloseFrame(code int, reason []byte) Frame {
	return Frame{kind: CloseFrame, data: reason, code: code}
}
