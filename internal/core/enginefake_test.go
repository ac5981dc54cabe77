package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Fakes for the media-engine collaborator and the signaling connection.

var fakeIDs atomic.Int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, fakeIDs.Add(1))
}

type fakeSignal struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
	closed bool
}

func (s *fakeSignal) TrySend(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("backpressure")
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSignal) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

type fakeEngine struct {
	mu         sync.Mutex
	failCreate bool
	routers    []*fakeRouter
}

func (e *fakeEngine) CreateRouter(ctx context.Context, codecs []Codec) (Router, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failCreate {
		return nil, errors.New("router exploded")
	}
	caps, _ := json.Marshal(struct {
		Codecs []Codec `json:"codecs"`
	}{codecs})
	r := &fakeRouter{caps: caps, producers: make(map[string]MediaKind)}
	e.routers = append(e.routers, r)
	return r, nil
}

type fakeRouter struct {
	caps json.RawMessage

	mu         sync.Mutex
	producers  map[string]MediaKind
	closeCount int
}

func (r *fakeRouter) RTPCapabilities() json.RawMessage { return r.caps }

func (r *fakeRouter) CreateTransport(ctx context.Context, dir TransportDirection) (Transport, error) {
	return &fakeTransport{id: nextID("transport"), dir: dir, router: r}, nil
}

// CanConsume: the producer must be known and the capability set must at
// least mention codecs.
func (r *fakeRouter) CanConsume(producerID string, rtpCapabilities json.RawMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.producers[producerID]; !ok {
		return false
	}
	return bytes.Contains(rtpCapabilities, []byte("codecs"))
}

func (r *fakeRouter) Close() {
	r.mu.Lock()
	r.closeCount++
	r.mu.Unlock()
}

type fakeTransport struct {
	id     string
	dir    TransportDirection
	router *fakeRouter

	mu         sync.Mutex
	connected  bool
	produceErr error
	closeCount int
}

func (t *fakeTransport) ID() string { return t.id }

func (t *fakeTransport) Parameters() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%q}`, t.id))
}

func (t *fakeTransport) Connect(ctx context.Context, dtls json.RawMessage) error {
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Produce(ctx context.Context, kind MediaKind, rtp json.RawMessage) (Producer, error) {
	t.mu.Lock()
	err := t.produceErr
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	pr := &fakeProducer{id: nextID("producer"), kind: kind, router: t.router}
	t.router.mu.Lock()
	t.router.producers[pr.id] = kind
	t.router.mu.Unlock()
	return pr, nil
}

func (t *fakeTransport) Consume(ctx context.Context, producerID string, caps json.RawMessage) (Consumer, error) {
	t.router.mu.Lock()
	kind, ok := t.router.producers[producerID]
	t.router.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown producer")
	}
	return &fakeConsumer{id: nextID("consumer"), producerID: producerID, kind: kind}, nil
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	t.closeCount++
	t.mu.Unlock()
}

func (t *fakeTransport) closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCount
}

type fakeProducer struct {
	id     string
	kind   MediaKind
	router *fakeRouter

	mu         sync.Mutex
	closeCount int
}

func (p *fakeProducer) ID() string      { return p.id }
func (p *fakeProducer) Kind() MediaKind { return p.kind }

func (p *fakeProducer) Close() {
	p.mu.Lock()
	p.closeCount++
	p.mu.Unlock()
	p.router.mu.Lock()
	delete(p.router.producers, p.id)
	p.router.mu.Unlock()
}

type fakeConsumer struct {
	id         string
	producerID string
	kind       MediaKind

	mu         sync.Mutex
	resumed    int
	closeCount int
}

func (c *fakeConsumer) ID() string         { return c.id }
func (c *fakeConsumer) ProducerID() string { return c.producerID }
func (c *fakeConsumer) Kind() MediaKind    { return c.kind }

func (c *fakeConsumer) RTPParameters() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"consumerId":%q}`, c.id))
}

func (c *fakeConsumer) Resume() error {
	c.mu.Lock()
	c.resumed++
	c.mu.Unlock()
	return nil
}

func (c *fakeConsumer) Close() {
	c.mu.Lock()
	c.closeCount++
	c.mu.Unlock()
}
