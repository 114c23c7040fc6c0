// Package stream publishes live session events to gRPC clients.
package stream

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/putt.report/internal/monitoring"
	"github.com/banshee-data/putt.report/internal/session"
)

var logf = monitoring.Component("stream")

// Config holds configuration for the event stream server.
type Config struct {
	ListenAddr   string // e.g. "localhost:50051"
	MaxClients   int    // Concurrent Watch streams
	ClientBuffer int    // Messages queued per client before dropping
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "localhost:50051",
		MaxClients:   8,
		ClientBuffer: 64,
	}
}

// SnapshotFunc returns the current session state.
type SnapshotFunc func() session.Snapshot

// Publisher fans session events out to connected Watch clients. Slow
// clients lose messages rather than holding up the session.
type Publisher struct {
	config   Config
	snapshot SnapshotFunc
	server   *grpc.Server

	events    chan *structpb.Struct
	clients   map[uint64]*client
	clientsMu sync.RWMutex
	nextID    atomic.Uint64

	eventCount  atomic.Uint64
	dropped     atomic.Uint64
	clientCount atomic.Int32

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type client struct {
	id uint64
	ch chan *structpb.Struct
}

// NewPublisher creates a stopped Publisher.
func NewPublisher(cfg Config, snapshot SnapshotFunc) *Publisher {
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultConfig().ClientBuffer
	}
	return &Publisher{
		config:   cfg,
		snapshot: snapshot,
		events:   make(chan *structpb.Struct, 256),
		clients:  make(map[uint64]*client),
		stopCh:   make(chan struct{}),
	}
}

// Start listens on the configured address and serves until Stop.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves on lis in the background until Stop.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.server = grpc.NewServer()
	p.server.RegisterService(&serviceDesc, p)

	p.wg.Add(2)
	go p.broadcastLoop()
	go func() {
		defer p.wg.Done()
		logf("gRPC event stream listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			logf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop closes every stream and shuts the server down.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	p.server.Stop()
	p.wg.Wait()
	logf("gRPC event stream stopped")
}

// Listener returns a session.Listener that publishes every event.
func (p *Publisher) Listener() session.Listener {
	return p.Publish
}

// Publish queues ev for all connected clients.
func (p *Publisher) Publish(ev session.Event) {
	if !p.running.Load() {
		return
	}
	msg, err := toStruct(ev)
	if err != nil {
		logf("failed to encode %s event: %v", ev.Kind, err)
		return
	}
	select {
	case p.events <- msg:
		p.eventCount.Add(1)
	default:
		p.dropped.Add(1)
	}
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case msg := <-p.events:
			p.clientsMu.RLock()
			for _, c := range p.clients {
				select {
				case c.ch <- msg:
				default:
					p.dropped.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

func (p *Publisher) addClient() (*client, bool) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		return nil, false
	}
	c := &client{id: p.nextID.Add(1), ch: make(chan *structpb.Struct, p.config.ClientBuffer)}
	p.clients[c.id] = c
	p.clientCount.Add(1)
	logf("client %d connected (total: %d)", c.id, p.clientCount.Load())
	return c, true
}

func (p *Publisher) removeClient(id uint64) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if _, ok := p.clients[id]; ok {
		delete(p.clients, id)
		p.clientCount.Add(-1)
		logf("client %d disconnected (remaining: %d)", id, p.clientCount.Load())
	}
}

// Stats contains publisher counters.
type Stats struct {
	Events  uint64
	Dropped uint64
	Clients int32
	Running bool
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() Stats {
	return Stats{
		Events:  p.eventCount.Load(),
		Dropped: p.dropped.Load(),
		Clients: p.clientCount.Load(),
		Running: p.running.Load(),
	}
}

// toStruct converts a JSON-serialisable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// snapshotMessage wraps the current state as the first message of a Watch.
func (p *Publisher) snapshotMessage() (*structpb.Struct, error) {
	return toStruct(struct {
		Kind     string           `json:"kind"`
		Snapshot session.Snapshot `json:"snapshot"`
	}{Kind: "snapshot", Snapshot: p.snapshot()})
}
