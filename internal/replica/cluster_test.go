package replica

import (
	"github.com/jabolina/go-rqueue/internal/logging"
	"github.com/jabolina/go-rqueue/internal/wire"
)

// simulatedCluster drives a fixed set of ProcessData instances synchronously
// by feeding every outbound payload back through ExecuteLocally until no
// payload remains in flight. It exists purely to exercise execute.go's
// dispatch table end-to-end without a real transport, and processes
// messages in a single global FIFO order -- a strengthening of, not a
// violation of, spec.md section 5's "per sender->receiver pair FIFO"
// requirement.
type simulatedCluster struct {
	peers       []*ProcessData
	completions []completionRecord
}

type completionRecord struct {
	rank int32
	c    Completion
}

func newSimulatedCluster(worldSize int32) *simulatedCluster {
	c := &simulatedCluster{}
	for r := int32(0); r < worldSize; r++ {
		log := logging.NewDefaultLogger()
		log.ToggleDebug(false)
		c.peers = append(c.peers, NewProcessData(r, worldSize, log))
	}
	return c
}

// drain injects the given seed payloads and runs every peer's
// ExecuteLocally until quiescence (P4's "after all in-flight messages
// quiesce" precondition).
func (c *simulatedCluster) drain(seeds ...wire.Payload) {
	queue := append([]wire.Payload{}, seeds...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		peer := c.peers[next.Receiver]
		out, completion := peer.ExecuteLocally(next)
		queue = append(queue, out...)
		if completion != nil {
			c.completions = append(c.completions, completionRecord{rank: next.Receiver, c: *completion})
		}
	}
}

func (c *simulatedCluster) queuesAgree() bool {
	first := c.peers[0].LocalQueue()
	for _, p := range c.peers[1:] {
		q := p.LocalQueue()
		if len(q) != len(first) {
			return false
		}
		for i := range q {
			if q[i].Value != first[i].Value || q[i].Invoker != first[i].Invoker || !q[i].Timestamp.Equal(first[i].Timestamp) {
				return false
			}
		}
	}
	return true
}

func (c *simulatedCluster) clocksAgree() bool {
	first := c.peers[0].Timestamp
	for _, p := range c.peers[1:] {
		if !p.Timestamp.Equal(first) {
			return false
		}
	}
	return true
}
