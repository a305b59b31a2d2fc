// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package event

import (
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/google/goafl/pkg/log"
)

// maxRingEvents bounds the broker's in-memory event log, so a long-running
// broker's memory stays flat while a restarted worker can still catch up
// on everything it missed without replaying forever.
const maxRingEvents = 65536

// ConnectRequest/ConnectResponse are exchanged once, when a worker dials
// the broker, mirroring the Connect handshake of syz-manager/rpc.go.
type ConnectRequest struct {
	Worker string // UUID string
}

type ConnectResponse struct {
	SinceSeq uint64 // the broker's current high-water mark, for resume
}

type SinceRequest struct {
	Seq uint64
}

type SinceResponse struct {
	Events []Event
}

// NoReply is used where an RPC method has nothing to return.
type NoReply struct{}

// Broker is the single point every worker in a run reports events through
// and can poll for events other workers produced (the EventManager). It
// optionally forwards every received event to one peer broker (--b2baddr),
// building a two-broker mesh.
type Broker struct {
	mu       sync.Mutex
	events   []Event
	nextSeq  uint64
	workers  map[string]bool
	peerAddr string
	peer     *rpc.Client

	listener net.Listener
	server   *rpc.Server
}

// NewBroker constructs a Broker. If peerAddr is non-empty, events are
// mirrored to that broker's Report method as they arrive — lazily dialed on
// first use so a peer that isn't up yet doesn't block startup.
func NewBroker(peerAddr string) *Broker {
	return &Broker{
		workers:  make(map[string]bool),
		peerAddr: peerAddr,
	}
}

// ListenAndServe starts the RPC server on addr (host:port, or ":0" for an
// ephemeral port) and serves connections until the listener is closed.
// Returns once the listener is bound; serving happens in the background.
func (b *Broker) ListenAndServe(addr string) (string, error) {
	b.server = rpc.NewServer()
	if err := b.server.RegisterName("Broker", b); err != nil {
		return "", fmt.Errorf("event: failed to register broker: %w", err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("event: failed to listen on %q: %w", addr, err)
	}
	b.listener = ln
	go b.server.Accept(ln)
	log.Logf(0, "event broker listening on %v", ln.Addr())
	return ln.Addr().String(), nil
}

func (b *Broker) Close() error {
	if b.listener == nil {
		return nil
	}
	return b.listener.Close()
}

// Connect registers a worker and reports the broker's current sequence
// number, so the worker's first Since() call only asks for what it missed.
func (b *Broker) Connect(req *ConnectRequest, resp *ConnectResponse) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workers[req.Worker] = true
	resp.SinceSeq = b.nextSeq
	log.Logf(1, "worker %v connected", req.Worker)
	return nil
}

// Report appends e to the ring, assigning it a sequence number and
// timestamp, and mirrors it to the peer broker if one is configured.
func (b *Broker) Report(e *Event, _ *NoReply) error {
	b.mu.Lock()
	e.Seq = b.nextSeq
	b.nextSeq++
	e.Time = time.Now()
	b.events = append(b.events, *e)
	if len(b.events) > maxRingEvents {
		b.events = b.events[len(b.events)-maxRingEvents:]
	}
	peer := b.peer
	peerAddr := b.peerAddr
	b.mu.Unlock()

	if peerAddr == "" {
		return nil
	}
	if peer == nil {
		var err error
		peer, err = rpc.Dial("tcp", peerAddr)
		if err != nil {
			log.Logf(1, "event: peer broker %v unreachable: %v", peerAddr, err)
			return nil
		}
		b.mu.Lock()
		b.peer = peer
		b.mu.Unlock()
	}
	// Best effort: a dead peer must never block the reporting worker.
	go func(ev Event) {
		var ignored NoReply
		if err := peer.Call("Broker.Report", &ev, &ignored); err != nil {
			log.Logf(1, "event: failed to mirror event to peer: %v", err)
		}
	}(*e)
	return nil
}

// Since returns every event the broker has recorded with Seq >= req.Seq,
// letting a reconnecting worker (after its own crash-restart) catch up.
func (b *Broker) Since(req *SinceRequest, resp *SinceResponse) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.Seq >= req.Seq {
			resp.Events = append(resp.Events, e)
		}
	}
	return nil
}
