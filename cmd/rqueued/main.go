// Command rqueued bootstraps one replica of the distributed FIFO queue: it
// wires together the relt-backed transport, the client ingress listener, and
// the per-rank replica event loop, then runs until SIGINT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/go-rqueue/internal/ingress"
	"github.com/jabolina/go-rqueue/internal/logging"
	"github.com/jabolina/go-rqueue/internal/peer"
	"github.com/jabolina/go-rqueue/internal/replica"
	"github.com/jabolina/go-rqueue/internal/transport"
)

var (
	rank      = kingpin.Flag("rank", "this process's rank within the replica set").Required().Int32()
	worldSize = kingpin.Flag("world-size", "number of replicas in the set").Required().Int32()
	basePort  = kingpin.Flag("base-port", "base TCP port; this rank's client ingress listens on base-port + rank").Default("8000").Int()
	debug     = kingpin.Flag("debug", "enable debug-level logging").Bool()
)

func main() {
	kingpin.Version("rqueued 1.0.0")
	kingpin.Parse()

	log := logging.NewDefaultLogger()
	log.ToggleDebug(*debug)

	if *rank < 0 || *rank >= *worldSize {
		log.Fatalf("rank %d out of range for world size %d", *rank, *worldSize)
	}

	tr, err := transport.NewReltTransport(*rank, log)
	if err != nil {
		log.Fatalf("starting transport: %v", err)
	}
	defer tr.Close()

	addr := fmt.Sprintf("0.0.0.0:%d", *basePort+int(*rank))
	listener, err := ingress.Listen(addr, *worldSize, log)
	if err != nil {
		log.Fatalf("starting ingress listener on %s: %v", addr, err)
	}
	defer listener.Close()
	go listener.Serve()

	p := peer.New(*rank, *worldSize, tr, listener.Messages(), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reportCompletions(p, log)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go awaitShutdown(sig, cancel, log)

	log.Infof("rank %d listening for client ingress on %s", *rank, addr)
	p.Run(ctx)
	log.Infof("rank %d stopped", *rank)
}

// reportCompletions logs every locally-invoked operation's outcome as it
// finishes. It exits once Results is drained and closed alongside the peer.
func reportCompletions(p *peer.Peer, log logging.Logger) {
	for c := range p.Results() {
		switch c.Kind {
		case replica.EnqueueCompleted:
			log.Infof("enqueue(%d) completed for invoker %d", c.Value, c.Invoker)
		case replica.DequeueCompleted:
			log.Infof("dequeue() completed for invoker %d -> %d", c.Invoker, c.Value)
		}
	}
}

// awaitShutdown blocks for the first signal, prints the shutdown banner and
// cancels ctx for a cooperative stop; a second signal forces an immediate
// exit for an operator who doesn't want to wait on in-flight rounds.
func awaitShutdown(sig <-chan os.Signal, cancel context.CancelFunc, log logging.Logger) {
	<-sig
	banner := color.New(color.FgYellow, color.Bold).Sprint(
		"\n+-------------------------------------------+\n" +
			"| rqueued: shutdown requested, draining...   |\n" +
			"| send the signal again to force an exit     |\n" +
			"+-------------------------------------------+",
	)
	fmt.Fprintln(os.Stderr, banner)
	cancel()

	<-sig
	log.Warn("second shutdown signal received, exiting immediately")
	os.Exit(1)
}
