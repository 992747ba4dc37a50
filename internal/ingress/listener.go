// Package ingress implements the line-oriented TCP client ingress that
// turns textual operation records into MessagePayload values for the
// replica core's event loop.
package ingress

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/jabolina/go-rqueue/internal/logging"
	"github.com/jabolina/go-rqueue/internal/vectorclock"
	"github.com/jabolina/go-rqueue/internal/wire"
)

// Listener accepts line-oriented client connections on a TCP port and
// publishes every successfully parsed operation record to Messages().
type Listener struct {
	listener  net.Listener
	out       chan wire.Payload
	log       logging.Logger
	worldSize int32
}

// Listen binds addr and returns a Listener ready to Serve. worldSize sizes
// the default vector clock attached to synthesized payloads.
func Listen(addr string, worldSize int32, log logging.Logger) (*Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rqueue: ingress listen on %s: %w", addr, err)
	}
	return &Listener{
		listener:  l,
		out:       make(chan wire.Payload, 64),
		log:       log,
		worldSize: worldSize,
	}, nil
}

// Messages returns the channel operation records are published to.
func (l *Listener) Messages() <-chan wire.Payload {
	return l.out
}

// Addr returns the address the listener is bound to.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections until the listener is closed. It should be run
// in its own goroutine; it returns when Close is called.
func (l *Listener) Serve() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			return
		}
		go l.handle(conn)
	}
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.listener.Close()
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := l.parse(line)
		if !ok {
			l.log.Warnf("ingress: discarding malformed record %q", line)
			continue
		}
		l.out <- payload
	}
}

// parse turns "process:<rank>,op:<kind>,value:<int>" (fields comma
// separated, colon keyed, whitespace tolerant, any order) into a payload
// with invoker = sender = receiver = process and a default timestamp.
// Recognized op codes are 0 (enqueue) and 3 (dequeue).
func (l *Listener) parse(line string) (wire.Payload, bool) {
	var process, op, value int64
	var haveProcess, haveOp, haveValue bool

	for _, field := range strings.Split(line, ",") {
		key, val, ok := splitKeyValue(field)
		if !ok {
			continue
		}
		switch key {
		case "process":
			if n, err := strconv.ParseInt(val, 10, 32); err == nil {
				process, haveProcess = n, true
			}
		case "op":
			if n, err := strconv.ParseInt(val, 10, 32); err == nil {
				op, haveOp = n, true
			}
		case "value":
			if n, err := strconv.ParseInt(val, 10, 32); err == nil {
				value, haveValue = n, true
			}
		}
	}

	if !haveProcess || !haveOp || !haveValue {
		return wire.Payload{}, false
	}

	var kind wire.Kind
	switch op {
	case 0:
		kind = wire.EnqInvoke
	case 3:
		kind = wire.DeqInvoke
	default:
		return wire.Payload{}, false
	}

	rank := int32(process)
	payload := wire.NewPayload(kind, int32(value), rank, rank, rank, vectorclock.New(int(l.worldSize)))
	return payload, true
}

func splitKeyValue(field string) (key, value string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(field), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}
