package transport

import (
	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
)

type MessageType uint8

const (
	MessageTypeJoinHint MessageType = iota + 1
	MessageTypeShuffleRequest
	MessageTypeShuffleReply
	MessageTypeBall
	// messageTypeHello is only used by the stream transport to exchange
	// node identities.
	messageTypeHello
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeJoinHint:
		return "join_hint"
	case MessageTypeShuffleRequest:
		return "shuffle_request"
	case MessageTypeShuffleReply:
		return "shuffle_reply"
	case MessageTypeBall:
		return "ball"
	case messageTypeHello:
		return "hello"
	default:
		return "unknown"
	}
}

// Message is a message exchanged between nodes. Only the field matching
// Type is set.
type Message struct {
	Type MessageType

	// From is the node that sent the message.
	From cyclon.Peer

	JoinHint       *cyclon.Peer
	ShuffleRequest *cyclon.ShuffleRequest
	ShuffleReply   *cyclon.ShuffleReply
	Ball           []epto.Event
}

func NewJoinHint(from cyclon.Peer, hint cyclon.Peer) *Message {
	return &Message{
		Type:     MessageTypeJoinHint,
		From:     from,
		JoinHint: &hint,
	}
}

func NewShuffleRequest(from cyclon.Peer, req *cyclon.ShuffleRequest) *Message {
	return &Message{
		Type:           MessageTypeShuffleRequest,
		From:           from,
		ShuffleRequest: req,
	}
}

func NewShuffleReply(from cyclon.Peer, reply *cyclon.ShuffleReply) *Message {
	return &Message{
		Type:         MessageTypeShuffleReply,
		From:         from,
		ShuffleReply: reply,
	}
}

func NewBall(from cyclon.Peer, events []epto.Event) *Message {
	return &Message{
		Type: MessageTypeBall,
		From: from,
		Ball: events,
	}
}

// Clone returns a deep copy of the message, so the receiver doesn't share
// memory with the sender.
func (m *Message) Clone() *Message {
	clone := &Message{
		Type: m.Type,
		From: m.From,
	}
	if m.JoinHint != nil {
		hint := *m.JoinHint
		clone.JoinHint = &hint
	}
	if m.ShuffleRequest != nil {
		req := *m.ShuffleRequest
		req.Sample = append([]cyclon.Entry(nil), m.ShuffleRequest.Sample...)
		clone.ShuffleRequest = &req
	}
	if m.ShuffleReply != nil {
		reply := *m.ShuffleReply
		reply.Sample = append([]cyclon.Entry(nil), m.ShuffleReply.Sample...)
		clone.ShuffleReply = &reply
	}
	if m.Ball != nil {
		clone.Ball = append([]epto.Event(nil), m.Ball...)
	}
	return clone
}
