package replica

import (
	"github.com/jabolina/go-rqueue/internal/wire"
)

// CompletionKind distinguishes an enqueue round finishing from a dequeue
// round resolving to a value.
type CompletionKind int

const (
	EnqueueCompleted CompletionKind = iota
	DequeueCompleted
)

// Completion is reported to the invoking peer's caller once a round
// finishes locally. DequeueCompleted's Value is -1 when the queue had no
// eligible element (spec.md section 4.4, "edge cases").
type Completion struct {
	Kind    CompletionKind
	Invoker int32
	Value   int32
}

// ExecuteLocally applies an inbound payload to p and returns the outbound
// payloads the event loop must dispatch, plus any completion this peer must
// report to a local invoker. Every outbound payload carries p's rank as
// Sender. Unknown kinds are ignored; a payload speaking an unsupported
// protocol version is dropped (logged) before dispatch.
func (p *ProcessData) ExecuteLocally(payload wire.Payload) ([]wire.Payload, *Completion) {
	if err := wire.CheckProtocolVersion(payload.ProtocolVersion); err != nil {
		p.log.Warnf("dropping payload from %s: %v", payload.Kind, err)
		return nil, nil
	}

	p.recordHistory(payload)

	switch payload.Kind {
	case wire.EnqInvoke:
		return p.onEnqInvoke(payload), nil
	case wire.EnqReq:
		return p.onEnqReq(payload), nil
	case wire.EnqAck:
		return nil, p.onEnqAck(payload)
	case wire.DeqInvoke:
		return p.onDeqInvoke(payload), nil
	case wire.DeqReq:
		return p.onDeqReq(payload), nil
	case wire.DeqAck:
		return nil, p.onDeqAck(payload)
	default:
		p.log.Warnf("ignoring unknown message kind %v", payload.Kind)
		return nil, nil
	}
}

// onEnqInvoke: kind 0. Resets the in-flight ack counter, stamps this peer's
// own clock, and broadcasts an EnqReq carrying that timestamp to every rank
// including self.
func (p *ProcessData) onEnqInvoke(payload wire.Payload) []wire.Payload {
	p.enqCount = 0
	p.incrementTimestamp()

	out := make([]wire.Payload, 0, p.worldSize)
	for dst := int32(0); dst < p.worldSize; dst++ {
		out = append(out, wire.NewPayload(wire.EnqReq, payload.Value, payload.Invoker, p.rank, dst, p.Timestamp))
	}
	return out
}

// onEnqReq: kind 1. Merges the sender's clock, inserts the value into the
// ordered local queue at the fixed invocation timestamp, unblocks any
// pending dequeue whose ts predates this enqueue, then acks the invoker.
func (p *ProcessData) onEnqReq(payload wire.Payload) []wire.Payload {
	p.mergeTimestamp(payload.Timestamp)
	p.orderedInsert(payload.Value, payload.Invoker, payload.Timestamp)

	for _, cl := range p.pendingDeques {
		if cl.Ts.Less(payload.Timestamp) {
			cl.ResponseBuffer[payload.Invoker] = true
		}
	}

	return []wire.Payload{
		wire.NewPayload(wire.EnqAck, payload.Value, payload.Invoker, p.rank, payload.Invoker, p.Timestamp),
	}
}

// onEnqAck: kind 2. Counts acks for the in-flight enqueue; once every peer
// has acked, the round is done and the peer unlocks.
func (p *ProcessData) onEnqAck(payload wire.Payload) *Completion {
	p.enqCount++
	if p.enqCount != p.worldSize {
		return nil
	}
	p.Locked = false
	return &Completion{Kind: EnqueueCompleted, Invoker: payload.Invoker, Value: payload.Value}
}

// onDeqInvoke: kind 3. Stamps this peer's clock and broadcasts a DeqReq to
// every rank.
func (p *ProcessData) onDeqInvoke(payload wire.Payload) []wire.Payload {
	p.incrementTimestamp()

	out := make([]wire.Payload, 0, p.worldSize)
	for dst := int32(0); dst < p.worldSize; dst++ {
		out = append(out, wire.NewPayload(wire.DeqReq, 0, p.rank, p.rank, dst, p.Timestamp))
	}
	return out
}

// onDeqReq: kind 4. Merges the sender's clock, opens a confirmation list for
// this dequeue timestamp if one doesn't already exist, then broadcasts a
// DeqAck carrying that same timestamp to every rank.
func (p *ProcessData) onDeqReq(payload wire.Payload) []wire.Payload {
	p.mergeTimestamp(payload.Timestamp)
	if !p.containsTimestamp(payload.Timestamp) {
		p.insertByTS(newConfirmationList(p.worldSize, payload.Timestamp, payload.Invoker))
	}

	out := make([]wire.Payload, 0, p.worldSize)
	for dst := int32(0); dst < p.worldSize; dst++ {
		out = append(out, wire.NewPayload(wire.DeqAck, 0, payload.Invoker, p.rank, dst, payload.Timestamp))
	}
	return out
}

// onDeqAck: kind 5. Records the sender's flag on the matching confirmation
// list, propagates it to earlier lists, then commits every newly-full,
// not-yet-handled list by dequeuing the oldest entry older than the
// currently-processed DeqAck's timestamp (see SPEC_FULL.md Open Question
// (b): the bound is payload.Timestamp, not the confirmation list's own Ts).
func (p *ProcessData) onDeqAck(payload wire.Payload) *Completion {
	if !p.containsTimestamp(payload.Timestamp) {
		p.insertByTS(newConfirmationList(p.worldSize, payload.Timestamp, payload.Invoker))
	}

	if cl := p.findConfirmationList(payload.Timestamp); cl != nil {
		cl.ResponseBuffer[payload.Sender] = true
		p.propagateEarlierResponses()
	}

	var completion *Completion
	for _, cl := range p.pendingDeques {
		if !cl.IsFull() || cl.Handled {
			continue
		}
		entry, ok := p.dequeueOlderThan(payload.Timestamp)
		cl.Handled = true
		value := int32(-1)
		if ok {
			value = entry.Value
		}
		if p.rank == payload.Invoker {
			completion = &Completion{Kind: DequeueCompleted, Invoker: payload.Invoker, Value: value}
		}
	}

	p.Locked = false
	return completion
}
