// Package wire defines the on-the-wire message exchanged between peers and
// the protocol-version gate guarding it.
package wire

import (
	"errors"
	"fmt"

	version "github.com/hashicorp/go-version"

	"github.com/jabolina/go-rqueue/internal/vectorclock"
)

// Kind identifies one of the six message shapes the replica core reacts to.
// 0 and 3 are local invocations injected by ingress; the rest are inter-peer
// replica messages.
type Kind int32

const (
	EnqInvoke Kind = iota
	EnqReq
	EnqAck
	DeqInvoke
	DeqReq
	DeqAck
)

func (k Kind) String() string {
	switch k {
	case EnqInvoke:
		return "EnqInvoke"
	case EnqReq:
		return "EnqReq"
	case EnqAck:
		return "EnqAck"
	case DeqInvoke:
		return "DeqInvoke"
	case DeqReq:
		return "DeqReq"
	case DeqAck:
		return "DeqAck"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// ProtocolVersion is the version this build of the replica core speaks.
// Payloads from an incompatible version are rejected, mirroring the
// teacher's RPCHeader/ErrUnsupportedProtocol gate.
const ProtocolVersion = "1.0.0"

// supportedConstraint accepts any 1.x payload; a 2.x wire format would
// signal a breaking change to the Payload shape.
var supportedConstraint = version.MustConstraints(version.NewConstraint(">= 1.0.0, < 2.0.0"))

// ErrUnsupportedProtocol is returned when a payload's protocol version is
// not satisfied by supportedConstraint.
var ErrUnsupportedProtocol = errors.New("rqueue: protocol version not supported")

// CheckProtocolVersion parses raw and validates it against the versions this
// build understands.
func CheckProtocolVersion(raw string) error {
	v, err := version.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("rqueue: invalid protocol version %q: %w", raw, err)
	}
	if !supportedConstraint.Check(v) {
		return ErrUnsupportedProtocol
	}
	return nil
}

// Payload is the fixed-shape record exchanged between peers. Its field set
// mirrors the transport contract in spec.md section 6; every field is a
// plain value (no pointers), keeping the layout stable across the wire.
type Payload struct {
	ProtocolVersion string
	Kind            Kind
	Value           int32
	Invoker         int32
	Sender          int32
	Receiver        int32
	Timestamp       vectorclock.Clock
}

// NewPayload stamps a payload with the locally supported protocol version.
func NewPayload(kind Kind, value, invoker, sender, receiver int32, ts vectorclock.Clock) Payload {
	return Payload{
		ProtocolVersion: ProtocolVersion,
		Kind:            kind,
		Value:           value,
		Invoker:         invoker,
		Sender:          sender,
		Receiver:        receiver,
		Timestamp:       ts,
	}
}
