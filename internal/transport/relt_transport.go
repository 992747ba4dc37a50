package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jabolina/relt/pkg/relt"
	prometheuslog "github.com/prometheus/common/log"

	"github.com/jabolina/go-rqueue/internal/logging"
	"github.com/jabolina/go-rqueue/internal/wire"
)

// rankAddress is the relt group address a peer listens on for its own
// inbox. Sending to a rank means broadcasting to this address.
func rankAddress(rank int32) relt.GroupAddress {
	return relt.GroupAddress(fmt.Sprintf("rqueue-rank-%d", rank))
}

type received struct {
	source  int32
	payload wire.Payload
}

// ReltTransport implements Transport over github.com/jabolina/relt, the same
// reliable group-addressed transport the teacher repo wraps in
// core/transport.go. Each peer's own rank is its relt inbox address; Send
// broadcasts to the destination rank's inbox.
type ReltTransport struct {
	log      logging.Logger
	relt     *relt.Relt
	rank     int32
	incoming chan received
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewReltTransport starts a relt instance bound to rank's own inbox address
// and begins draining it into an internal buffered channel.
func NewReltTransport(rank int32, log logging.Logger) (*ReltTransport, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = fmt.Sprintf("rqueue-peer-%d", rank)
	conf.Exchange = rankAddress(rank)

	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &ReltTransport{
		log:      log,
		relt:     r,
		rank:     rank,
		incoming: make(chan received, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
	go t.poll()
	return t, nil
}

// Send implements Transport.
func (t *ReltTransport) Send(dst int32, payload wire.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rqueue: marshal payload to rank %d: %w", dst, err)
	}

	send := relt.Send{Address: rankAddress(dst), Data: data}
	if err := t.relt.Broadcast(t.ctx, send); err != nil {
		prometheuslog.Errorf("failed sending payload %#v to rank %d. %v", payload, dst, err)
		return err
	}
	return nil
}

// PostRecvAny implements Transport.
func (t *ReltTransport) PostRecvAny() Handle {
	return Handle{}
}

// Test implements Transport.
func (t *ReltTransport) Test(Handle) (int32, wire.Payload, bool) {
	select {
	case r := <-t.incoming:
		return r.source, r.payload, true
	default:
		return 0, wire.Payload{}, false
	}
}

// Close implements Transport.
func (t *ReltTransport) Close() error {
	t.cancel()
	return t.relt.Close()
}

// poll keeps draining relt's receive channel into the internal incoming
// queue until the transport is closed.
func (t *ReltTransport) poll() {
	listener, err := t.relt.Consume()
	if err != nil {
		t.log.Errorf("rank %d failed starting relt consumer: %v", t.rank, err)
		return
	}
	for {
		select {
		case <-t.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			t.consume(recv)
		}
	}
}

func (t *ReltTransport) consume(recv relt.Recv) {
	if recv.Error != nil {
		t.log.Errorf("rank %d failed consuming message: %v", t.rank, recv.Error)
		return
	}
	if recv.Data == nil {
		t.log.Warnf("rank %d received empty message", t.rank)
		return
	}

	var payload wire.Payload
	if err := json.Unmarshal(recv.Data, &payload); err != nil {
		t.log.Errorf("rank %d failed unmarshalling payload: %v", t.rank, err)
		return
	}

	select {
	case t.incoming <- received{source: payload.Sender, payload: payload}:
	case <-t.ctx.Done():
	}
}
