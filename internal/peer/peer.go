// Package peer drives one replica's event loop: it interleaves inbound
// transport messages with externally injected client operations and
// dispatches the outbound payloads execute_locally produces.
package peer

import (
	"context"

	"github.com/jabolina/go-rqueue/internal/logging"
	"github.com/jabolina/go-rqueue/internal/replica"
	"github.com/jabolina/go-rqueue/internal/transport"
	"github.com/jabolina/go-rqueue/internal/wire"
)

// Peer owns one rank's replica state, its transport, and the outbox that
// bridges them. It is driven entirely by Run; other goroutines reach it only
// through the ingress channel handed to New, Inspect, and Results.
type Peer struct {
	data      *replica.ProcessData
	transport transport.Transport
	ingress   <-chan wire.Payload
	log       logging.Logger
	outbox    []wire.Payload
	results   chan replica.Completion
	probes    chan func()
	stopped   chan struct{}
}

// New constructs a Peer for rank inside a world of worldSize peers. ingress
// is the channel the client-ingress goroutines feed.
func New(rank, worldSize int32, t transport.Transport, ingress <-chan wire.Payload, log logging.Logger) *Peer {
	return &Peer{
		data:      replica.NewProcessData(rank, worldSize, log),
		transport: t,
		ingress:   ingress,
		log:       log,
		results:   make(chan replica.Completion, 16),
		probes:    make(chan func()),
		stopped:   make(chan struct{}),
	}
}

// Data exposes the underlying replica state. It is only safe to call from
// the goroutine driving Run, or after Run has returned -- concurrent reads
// while Run is still looping race with the loop's own mutations. Use
// Inspect for a race-free read while Run is active.
func (p *Peer) Data() *replica.ProcessData {
	return p.data
}

// Inspect runs fn against the peer's ProcessData from inside the goroutine
// running Run and blocks until it has run, giving callers outside that
// goroutine (tests, diagnostics) a race-free snapshot point instead of
// reaching into state Run otherwise owns exclusively. It is a no-op once
// Run has returned.
func (p *Peer) Inspect(fn func(*replica.ProcessData)) {
	done := make(chan struct{})
	select {
	case p.probes <- func() { fn(p.data); close(done) }:
	case <-p.stopped:
		return
	}
	select {
	case <-done:
	case <-p.stopped:
	}
}

// Results delivers a Completion each time an enqueue or dequeue this peer
// invoked finishes locally. It is closed when Run returns.
func (p *Peer) Results() <-chan replica.Completion {
	return p.results
}

// Run drives the event loop until ctx is cancelled. Each iteration: post a
// fresh non-blocking receive, then busy-poll it while opportunistically
// draining ingress and dispatching the outbox, until the receive completes;
// apply the received payload through execute_locally and extend the
// outbox with its output (spec.md section 4.5). Run returns when ctx is
// cancelled or a transport send fails.
func (p *Peer) Run(ctx context.Context) {
	defer close(p.stopped)
	defer close(p.results)
	for {
		if ctx.Err() != nil {
			return
		}

		handle := p.transport.PostRecvAny()
		for {
			if ctx.Err() != nil {
				return
			}

			p.drainIngress()
			p.drainProbes()
			if err := p.dispatchOutbox(); err != nil {
				return
			}

			source, payload, ok := p.transport.Test(handle)
			if !ok {
				continue
			}

			p.log.Debugf("rank %d received %s from %d", p.data.Rank(), payload.Kind, source)
			out, completion := p.data.ExecuteLocally(payload)
			p.outbox = append(p.outbox, out...)
			if completion != nil {
				select {
				case p.results <- *completion:
				case <-ctx.Done():
					return
				}
			}
			break
		}
	}
}

// drainIngress moves every currently-available client-ingress record into
// the outbox without blocking.
func (p *Peer) drainIngress() {
	for {
		select {
		case m, ok := <-p.ingress:
			if !ok {
				return
			}
			p.outbox = append(p.outbox, m)
		default:
			return
		}
	}
}

// drainProbes runs every currently-queued Inspect callback without blocking,
// giving outside goroutines a race-free window onto p.data.
func (p *Peer) drainProbes() {
	for {
		select {
		case fn := <-p.probes:
			fn()
		default:
			return
		}
	}
}

// dispatchOutbox sends every outbox entry this peer originated, except a
// local enqueue invocation while locked (spec.md section 4.5 step 2b).
// A suppressed entry is left in place: it is naturally reconsidered -- and
// sent -- on a later iteration once locked clears, matching the literal
// behavior of the original implementation this protocol is distilled from
// (see DESIGN.md). A send failure is logged and returned, which stops Run.
func (p *Peer) dispatchOutbox() error {
	remaining := p.outbox[:0]
	for _, m := range p.outbox {
		if m.Sender != p.data.Rank() {
			remaining = append(remaining, m)
			continue
		}
		if m.Kind == wire.EnqInvoke && p.data.Locked {
			remaining = append(remaining, m)
			continue
		}

		if m.Kind == wire.EnqInvoke || m.Kind == wire.DeqInvoke {
			p.data.Locked = true
		}
		if err := p.transport.Send(m.Receiver, m); err != nil {
			p.log.Errorf("rank %d failed sending %s to %d: %v", p.data.Rank(), m.Kind, m.Receiver, err)
			return err
		}
	}
	p.outbox = remaining
	return nil
}
