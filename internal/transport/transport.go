// Package transport defines the point-to-point messaging contract the
// replica core is driven through, and provides two implementations: a
// reliable inter-process one backed by relt, and an in-memory loopback used
// by tests.
package transport

import "github.com/jabolina/go-rqueue/internal/wire"

// Handle identifies one posted non-blocking receive. It carries no state of
// its own: every Transport backs PostRecvAny/Test with a single "any
// source" inbox, matching spec.md section 6's post_recv_any/test pair.
type Handle struct{}

// Transport is the collective point-to-point layer the replica core
// consumes. Implementations must deliver payloads FIFO per sender/receiver
// pair (spec.md section 5); ordering across different pairs is unspecified.
type Transport interface {
	// Send blocks until payload has been handed to the transport for
	// delivery to dst.
	Send(dst int32, payload wire.Payload) error

	// PostRecvAny arms a receive that will complete with a payload from
	// any source.
	PostRecvAny() Handle

	// Test polls a previously-posted handle without blocking. ok is false
	// if no payload has arrived yet.
	Test(h Handle) (source int32, payload wire.Payload, ok bool)

	// Close releases the transport's resources.
	Close() error
}
