// Package replica implements the per-peer replicated-queue state machine:
// ProcessData, the ordered local queue, confirmation-list bookkeeping, and
// the execute_locally dispatch (see execute.go).
package replica

import (
	"github.com/jabolina/go-rqueue/internal/logging"
	"github.com/jabolina/go-rqueue/internal/vectorclock"
	"github.com/jabolina/go-rqueue/internal/wire"
)

// Entry is one element of the local queue: the enqueued value, the rank
// that invoked the enqueue, and the timestamp fixed by that invocation.
type Entry struct {
	Value     int32
	Invoker   int32
	Timestamp vectorclock.Clock
}

// ConfirmationList tracks, for a single pending dequeue, which peers have
// accounted for it. Full (every flag set) means the dequeue may commit.
type ConfirmationList struct {
	ResponseBuffer []bool
	Ts             vectorclock.Clock
	Invoker        int32
	Handled        bool
}

// IsFull reports whether every peer's flag is set.
func (cl *ConfirmationList) IsFull() bool {
	for _, v := range cl.ResponseBuffer {
		if !v {
			return false
		}
	}
	return true
}

// ProcessData is the per-peer mutable state. It is owned exclusively by the
// peer's event-loop goroutine; nothing else may touch it concurrently.
type ProcessData struct {
	rank           int32
	worldSize      int32
	Timestamp      vectorclock.Clock
	localQueue     []Entry
	pendingDeques  []*ConfirmationList
	enqCount       int32
	Locked         bool
	messageHistory []wire.Payload
	log            logging.Logger
}

// NewProcessData constructs the zeroed state for a peer of the given rank
// inside a world of worldSize peers.
func NewProcessData(rank, worldSize int32, log logging.Logger) *ProcessData {
	return &ProcessData{
		rank:      rank,
		worldSize: worldSize,
		Timestamp: vectorclock.New(int(worldSize)),
		log:       log,
	}
}

// Rank returns the peer's own rank.
func (p *ProcessData) Rank() int32 { return p.rank }

// WorldSize returns the number of peers in the replica set.
func (p *ProcessData) WorldSize() int32 { return p.worldSize }

// LocalQueue returns a snapshot of the ordered local queue, for tests and
// agreement checks. Callers must not mutate the returned slice's clocks.
func (p *ProcessData) LocalQueue() []Entry {
	out := make([]Entry, len(p.localQueue))
	copy(out, p.localQueue)
	return out
}

// PendingDequeueCount reports how many confirmation lists are outstanding.
func (p *ProcessData) PendingDequeueCount() int {
	return len(p.pendingDeques)
}

// MessageHistory returns the append-only audit log of received payloads.
func (p *ProcessData) MessageHistory() []wire.Payload {
	out := make([]wire.Payload, len(p.messageHistory))
	copy(out, p.messageHistory)
	return out
}

func (p *ProcessData) recordHistory(payload wire.Payload) {
	p.messageHistory = append(p.messageHistory, payload)
}

// incrementTimestamp bumps this peer's own component of its clock.
func (p *ProcessData) incrementTimestamp() {
	p.Timestamp = p.Timestamp.Increment(int(p.rank))
}

// mergeTimestamp folds another clock into this peer's clock.
func (p *ProcessData) mergeTimestamp(other vectorclock.Clock) {
	p.Timestamp = p.Timestamp.Merge(other)
}

// orderedInsert inserts at the first position whose stored timestamp is
// strictly greater than ts, preserving I1. A duplicate ts (unexpected per
// I5, but not rejected) is inserted after the existing entry, since the
// first strictly-greater position is past it.
func (p *ProcessData) orderedInsert(value, invoker int32, ts vectorclock.Clock) {
	pos := len(p.localQueue)
	for i, e := range p.localQueue {
		if ts.Less(e.Timestamp) {
			pos = i
			break
		}
	}
	entry := Entry{Value: value, Invoker: invoker, Timestamp: ts}
	p.localQueue = append(p.localQueue, Entry{})
	copy(p.localQueue[pos+1:], p.localQueue[pos:])
	p.localQueue[pos] = entry
}

// dequeueOlderThan removes and returns the entry with the smallest
// timestamp among those strictly less than bound, if any.
func (p *ProcessData) dequeueOlderThan(bound vectorclock.Clock) (Entry, bool) {
	oldest := -1
	for i, e := range p.localQueue {
		if !e.Timestamp.Less(bound) {
			continue
		}
		if oldest == -1 || e.Timestamp.Less(p.localQueue[oldest].Timestamp) {
			oldest = i
		}
	}
	if oldest == -1 {
		return Entry{}, false
	}
	entry := p.localQueue[oldest]
	p.localQueue = append(p.localQueue[:oldest], p.localQueue[oldest+1:]...)
	return entry, true
}

// containsTimestamp reports whether some pending confirmation list already
// has the exact timestamp ts.
func (p *ProcessData) containsTimestamp(ts vectorclock.Clock) bool {
	for _, cl := range p.pendingDeques {
		if cl.Ts.Equal(ts) {
			return true
		}
	}
	return false
}

// insertByTS binary-inserts cl into pendingDeques keyed by Ts, preserving I2.
func (p *ProcessData) insertByTS(cl *ConfirmationList) {
	lo, hi := 0, len(p.pendingDeques)
	for lo < hi {
		mid := (lo + hi) / 2
		if p.pendingDeques[mid].Ts.Less(cl.Ts) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	p.pendingDeques = append(p.pendingDeques, nil)
	copy(p.pendingDeques[lo+1:], p.pendingDeques[lo:])
	p.pendingDeques[lo] = cl
}

// propagateEarlierResponses enforces I3 with a single backward sweep: for
// every column set on entry i but unset on entry i-1, set it on i-1 too.
func (p *ProcessData) propagateEarlierResponses() {
	for i := len(p.pendingDeques) - 1; i >= 1; i-- {
		cur := p.pendingDeques[i]
		prev := p.pendingDeques[i-1]
		for col, set := range cur.ResponseBuffer {
			if set && !prev.ResponseBuffer[col] {
				prev.ResponseBuffer[col] = true
			}
		}
	}
}

// findConfirmationList returns the confirmation list with exact timestamp
// ts, if present.
func (p *ProcessData) findConfirmationList(ts vectorclock.Clock) *ConfirmationList {
	for _, cl := range p.pendingDeques {
		if cl.Ts.Equal(ts) {
			return cl
		}
	}
	return nil
}

func newConfirmationList(worldSize int32, ts vectorclock.Clock, invoker int32) *ConfirmationList {
	return &ConfirmationList{
		ResponseBuffer: make([]bool, worldSize),
		Ts:             ts,
		Invoker:        invoker,
	}
}
