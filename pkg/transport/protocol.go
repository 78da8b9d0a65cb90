package transport

import (
	"errors"
	"fmt"
	"io"

	"github.com/ugorji/go/codec"

	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
)

const (
	supportedVersion uint8 = 0
)

// header is written before each message body.
type header struct {
	Type    MessageType `codec:"type"`
	Version uint8       `codec:"version"`
	From    cyclon.Peer `codec:"from"`
}

type ballBody struct {
	Events []epto.Event `codec:"events"`
}

// trackedWriter is a wrapper for the underlying writer that counts the number
// of bytes written.
type trackedWriter struct {
	w io.Writer
	n int
}

func newTrackedWriter(w io.Writer) *trackedWriter {
	return &trackedWriter{
		w: w,
		n: 0,
	}
}

func (w *trackedWriter) Write(b []byte) (int, error) {
	n, err := w.w.Write(b)
	w.n += n
	return n, err
}

// Reset returns the number of bytes written since the last reset.
func (w *trackedWriter) Reset() int {
	n := w.n
	w.n = 0
	return n
}

var _ io.Writer = &trackedWriter{}

// trackedReader is a wrapper for the underlying reader that counts the number
// of bytes read.
type trackedReader struct {
	r io.Reader
	n int
}

func newTrackedReader(r io.Reader) *trackedReader {
	return &trackedReader{
		r: r,
	}
}

func (r *trackedReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	r.n += n
	return n, err
}

// Reset returns the number of bytes read since the last reset.
func (r *trackedReader) Reset() int {
	n := r.n
	r.n = 0
	return n
}

var _ io.Reader = &trackedReader{}

// encoder writes msgpack encoded messages.
type encoder struct {
	encoder *codec.Encoder
}

func newEncoder(writer io.Writer) *encoder {
	var handle codec.MsgpackHandle
	return &encoder{
		encoder: codec.NewEncoder(writer, &handle),
	}
}

func (e *encoder) Encode(msg *Message) error {
	if err := e.encoder.Encode(&header{
		Type:    msg.Type,
		Version: supportedVersion,
		From:    msg.From,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	var body interface{}
	switch msg.Type {
	case MessageTypeJoinHint:
		if msg.JoinHint == nil {
			return fmt.Errorf("missing join hint")
		}
		body = msg.JoinHint
	case MessageTypeShuffleRequest:
		if msg.ShuffleRequest == nil {
			return fmt.Errorf("missing shuffle request")
		}
		body = msg.ShuffleRequest
	case MessageTypeShuffleReply:
		if msg.ShuffleReply == nil {
			return fmt.Errorf("missing shuffle reply")
		}
		body = msg.ShuffleReply
	case MessageTypeBall:
		body = &ballBody{Events: msg.Ball}
	case messageTypeHello:
		// Hello has no body.
		return nil
	default:
		return fmt.Errorf("unsupported message type: %d", msg.Type)
	}

	if err := e.encoder.Encode(body); err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return nil
}

// decoder reads msgpack encoded messages.
type decoder struct {
	decoder *codec.Decoder
}

func newDecoder(reader io.Reader) *decoder {
	var handle codec.MsgpackHandle
	return &decoder{
		decoder: codec.NewDecoder(reader, &handle),
	}
}

// Decode reads the next message. Returns io.EOF if the reader is closed
// before the message starts.
func (d *decoder) Decode() (*Message, error) {
	var h header
	if err := d.decoder.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != supportedVersion {
		return nil, fmt.Errorf("unsupported version: %d", h.Version)
	}

	msg := &Message{
		Type: h.Type,
		From: h.From,
	}

	var err error
	switch h.Type {
	case MessageTypeJoinHint:
		var hint cyclon.Peer
		err = d.decoder.Decode(&hint)
		msg.JoinHint = &hint
	case MessageTypeShuffleRequest:
		var req cyclon.ShuffleRequest
		err = d.decoder.Decode(&req)
		msg.ShuffleRequest = &req
	case MessageTypeShuffleReply:
		var reply cyclon.ShuffleReply
		err = d.decoder.Decode(&reply)
		msg.ShuffleReply = &reply
	case MessageTypeBall:
		var body ballBody
		err = d.decoder.Decode(&body)
		msg.Ball = body.Events
	case messageTypeHello:
	default:
		return nil, fmt.Errorf("unsupported message type: %d", h.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", h.Type, err)
	}

	return msg, nil
}
