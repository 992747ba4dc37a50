package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-rqueue/internal/vectorclock"
	"github.com/jabolina/go-rqueue/internal/wire"
)

func invoke(kind wire.Kind, value, rank int32) wire.Payload {
	return wire.NewPayload(kind, value, rank, rank, rank, vectorclock.New(3))
}

// Scenario 1: single enqueue from rank 0, value 69.
func TestScenario_SingleEnqueue(t *testing.T) {
	cluster := newSimulatedCluster(3)
	cluster.drain(invoke(wire.EnqInvoke, 69, 0))

	require.True(t, cluster.queuesAgree())
	q := cluster.peers[0].LocalQueue()
	require.Len(t, q, 1)
	assert.EqualValues(t, 69, q[0].Value)
	assert.EqualValues(t, 0, q[0].Invoker)
	assert.EqualValues(t, 1, q[0].Timestamp.At(0))
	assert.EqualValues(t, 0, q[0].Timestamp.At(1))
}

// Scenario 2: two sequential enqueues from rank 0, values 69 then 420.
func TestScenario_TwoSequentialEnqueues(t *testing.T) {
	cluster := newSimulatedCluster(3)
	cluster.drain(invoke(wire.EnqInvoke, 69, 0))
	cluster.drain(invoke(wire.EnqInvoke, 420, 0))

	require.True(t, cluster.queuesAgree())
	q := cluster.peers[2].LocalQueue()
	require.Len(t, q, 2)
	assert.EqualValues(t, 69, q[0].Value)
	assert.EqualValues(t, 420, q[1].Value)
	assert.EqualValues(t, 1, q[0].Timestamp.At(0))
	assert.EqualValues(t, 2, q[1].Timestamp.At(0))
}

// Scenario 4: dequeue on an empty queue reports -1 and marks the
// confirmation list handled.
func TestScenario_DequeueOnEmptyQueue(t *testing.T) {
	cluster := newSimulatedCluster(3)
	cluster.drain(invoke(wire.DeqInvoke, 0, 1))

	require.Len(t, cluster.completions, 1)
	got := cluster.completions[0].c
	assert.Equal(t, DequeueCompleted, got.Kind)
	assert.EqualValues(t, 1, got.Invoker)
	assert.EqualValues(t, -1, got.Value)
	for _, p := range cluster.peers {
		require.Equal(t, 1, p.PendingDequeueCount())
		assert.True(t, p.pendingDeques[0].Handled)
	}
}

// Scenario 5a: EnqReq reaches every peer before the dequeue is invoked --
// the dequeue must return the enqueued value on every peer.
func TestScenario_EnqueueThenDequeue_EnqueueWins(t *testing.T) {
	cluster := newSimulatedCluster(3)
	cluster.drain(invoke(wire.EnqInvoke, 69, 0))
	cluster.drain(invoke(wire.DeqInvoke, 0, 1))

	require.True(t, cluster.queuesAgree())
	require.Len(t, cluster.peers[0].pendingDeques, 1)
	assert.True(t, cluster.peers[0].pendingDeques[0].Handled)
	assert.Empty(t, cluster.peers[0].LocalQueue())

	require.Len(t, cluster.completions, 2)
	assert.Equal(t, DequeueCompleted, cluster.completions[1].c.Kind)
	assert.EqualValues(t, 69, cluster.completions[1].c.Value)
}

// Scenario 3/5b: a dequeue invoked before any competing enqueue has been
// seen resolves to -1 on every peer, and all replicas still agree.
func TestScenario_DequeueBeforeEnqueueSeen_DequeueEmpty(t *testing.T) {
	cluster := newSimulatedCluster(3)
	// The dequeue round fully completes (including the DeqAck fan-out)
	// before the competing enqueue is even invoked, so there is nothing
	// in the local queue yet to resolve it to.
	cluster.drain(invoke(wire.DeqInvoke, 0, 1))
	cluster.drain(invoke(wire.EnqInvoke, 70, 1))

	require.True(t, cluster.queuesAgree())
	require.Len(t, cluster.completions, 2)
	assert.Equal(t, DequeueCompleted, cluster.completions[0].c.Kind)
	assert.EqualValues(t, -1, cluster.completions[0].c.Value)

	q := cluster.peers[0].LocalQueue()
	require.Len(t, q, 1)
	assert.EqualValues(t, 70, q[0].Value)
}

func TestExecuteLocally_UnsupportedProtocolVersionIsIgnored(t *testing.T) {
	cluster := newSimulatedCluster(3)
	bad := invoke(wire.EnqInvoke, 69, 0)
	bad.ProtocolVersion = "2.0.0"
	out, completion := cluster.peers[0].ExecuteLocally(bad)
	assert.Nil(t, out)
	assert.Nil(t, completion)
	assert.Empty(t, cluster.peers[0].LocalQueue())
}

func TestExecuteLocally_UnknownKindIsIgnoredButRecorded(t *testing.T) {
	cluster := newSimulatedCluster(3)
	unknown := invoke(wire.Kind(99), 1, 0)
	out, completion := cluster.peers[0].ExecuteLocally(unknown)
	assert.Nil(t, out)
	assert.Nil(t, completion)
	require.Len(t, cluster.peers[0].MessageHistory(), 1)
}
