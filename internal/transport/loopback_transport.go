package transport

import (
	"fmt"
	"sync"

	"github.com/jabolina/go-rqueue/internal/wire"
)

// Loopback is an in-memory Transport connecting peers that share a process,
// used by tests. It is the
// transport-layer analogue of the teacher's TestInvoker: a fake standing in
// for the real network primitive so the replica core can be exercised
// without relt.
type Loopback struct {
	rank   int32
	inbox  chan received
	mesh   *LoopbackMesh
	closed chan struct{}
	once   sync.Once
}

// LoopbackMesh wires together the Loopback transports for every rank in a
// single process so Send(dst, ...) can hand the payload directly to dst's
// inbox.
type LoopbackMesh struct {
	mutex sync.RWMutex
	peers map[int32]*Loopback
}

// NewLoopbackMesh returns an empty mesh ready to register peers.
func NewLoopbackMesh() *LoopbackMesh {
	return &LoopbackMesh{peers: make(map[int32]*Loopback)}
}

// NewTransport registers and returns a Loopback transport for rank.
func (m *LoopbackMesh) NewTransport(rank int32) *Loopback {
	t := &Loopback{
		rank:   rank,
		inbox:  make(chan received, 256),
		mesh:   m,
		closed: make(chan struct{}),
	}
	m.mutex.Lock()
	m.peers[rank] = t
	m.mutex.Unlock()
	return t
}

// Send implements Transport by handing the payload directly to dst's inbox.
func (t *Loopback) Send(dst int32, payload wire.Payload) error {
	t.mesh.mutex.RLock()
	target, ok := t.mesh.peers[dst]
	t.mesh.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("rqueue: no loopback peer registered for rank %d", dst)
	}

	select {
	case target.inbox <- received{source: t.rank, payload: payload}:
		return nil
	case <-target.closed:
		return fmt.Errorf("rqueue: rank %d transport is closed", dst)
	}
}

// PostRecvAny implements Transport.
func (t *Loopback) PostRecvAny() Handle {
	return Handle{}
}

// Test implements Transport.
func (t *Loopback) Test(Handle) (int32, wire.Payload, bool) {
	select {
	case r := <-t.inbox:
		return r.source, r.payload, true
	default:
		return 0, wire.Payload{}, false
	}
}

// Close implements Transport.
func (t *Loopback) Close() error {
	t.once.Do(func() {
		close(t.closed)
	})
	return nil
}
