// Package relay bridges worker goroutines and the connection-serving domain.
//
// Workers publish progress events without knowing how subscribers are
// served: each live connection owns a bounded outbound queue drained by a
// single writer goroutine, so [Hub.Publish] hands an event across domains
// with at most a short bounded wait and never propagates delivery failures
// back to the worker. A slow or absent subscriber costs dropped events,
// never a stalled fetch.
package relay

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hydrusband/fetchd/internal/progress"
	"github.com/hydrusband/fetchd/internal/shared"
)

// DefaultPublishTimeout bounds how long Publish may block a worker.
const DefaultPublishTimeout = time.Second

// defaultQueueSize is the per-connection outbound buffer depth.
const defaultQueueSize = 16

// Sink is one subscriber's write side of the wire (a websocket in the
// server, a channel-backed fake in tests).
type Sink interface {
	// Send delivers one marshaled event payload to the subscriber.
	Send(payload []byte) error
	// Close releases the underlying transport.
	Close() error
}

// connection pairs a Sink with its outbound queue and writer goroutine.
type connection struct {
	instance string
	sink     Sink
	out      chan []byte
	done     chan struct{}
	once     sync.Once
}

func (c *connection) stop() {
	c.once.Do(func() { close(c.done) })
}

// Hub tracks at most one live subscriber connection per channel id and
// relays progress events to it best-effort.
type Hub struct {
	mu             sync.Mutex
	conns          map[string]*connection
	logger         *log.Logger
	publishTimeout time.Duration
	queueSize      int
}

// Option configures a Hub.
type Option func(*Hub)

// WithPublishTimeout overrides the bound on how long Publish may block.
func WithPublishTimeout(d time.Duration) Option {
	return func(h *Hub) { h.publishTimeout = d }
}

// WithQueueSize overrides the per-connection outbound buffer depth.
func WithQueueSize(n int) Option {
	return func(h *Hub) { h.queueSize = n }
}

// NewHub creates an empty Hub.
func NewHub(logger *log.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	h := &Hub{
		conns:          make(map[string]*connection),
		logger:         logger,
		publishTimeout: DefaultPublishTimeout,
		queueSize:      defaultQueueSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach registers sink as the subscriber for channel and returns an
// instance token for the matching Detach call.
//
// Last attach wins: an existing connection on the same channel is closed
// and replaced.
func (h *Hub) Attach(channel string, sink Sink) string {
	conn := &connection{
		instance: shared.GenerateID(),
		sink:     sink,
		out:      make(chan []byte, h.queueSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if old, ok := h.conns[channel]; ok {
		old.stop()
	}
	h.conns[channel] = conn
	h.mu.Unlock()

	go h.writeLoop(channel, conn)

	h.logger.Debug("subscriber attached", "channel", channel)
	return conn.instance
}

// Detach removes the connection identified by instance from channel.
//
// A stale token (the channel was re-attached since) is a no-op, so a
// disconnect handler can never tear down its successor's connection.
func (h *Hub) Detach(channel, instance string) {
	h.mu.Lock()
	conn, ok := h.conns[channel]
	if ok && conn.instance == instance {
		delete(h.conns, channel)
	} else {
		conn = nil
	}
	h.mu.Unlock()

	if conn != nil {
		conn.stop()
		h.logger.Debug("subscriber detached", "channel", channel)
	}
}

// Publish relays event to the subscriber on channel, waiting at most the
// publish timeout. Events for channels with no subscriber, or whose queue
// stays full past the timeout, are dropped silently: progress delivery is
// best-effort and must never fail the producing worker.
func (h *Hub) Publish(channel string, event progress.Event) {
	payload, err := progress.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal progress event", "channel", channel, "error", err)
		return
	}

	h.mu.Lock()
	conn, ok := h.conns[channel]
	h.mu.Unlock()
	if !ok {
		return
	}

	timer := time.NewTimer(h.publishTimeout)
	defer timer.Stop()

	select {
	case conn.out <- payload:
	case <-conn.done:
	case <-timer.C:
		h.logger.Warn("dropping progress event, subscriber too slow", "channel", channel, "kind", event.Kind())
	}
}

// Subscribed is a pure membership query for channel.
func (h *Hub) Subscribed(channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[channel]
	return ok
}

// Close tears down every live connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*connection)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.stop()
	}
}

// writeLoop drains one connection's queue onto its sink in order.
// A send failure detaches the connection; delivery stays best-effort.
func (h *Hub) writeLoop(channel string, conn *connection) {
	defer conn.sink.Close()

	for {
		select {
		case payload := <-conn.out:
			if err := conn.sink.Send(payload); err != nil {
				h.logger.Debug("subscriber send failed", "channel", channel, "error", err)
				h.Detach(channel, conn.instance)
				return
			}
		case <-conn.done:
			return
		}
	}
}
