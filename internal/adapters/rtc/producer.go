package rtc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
)

// producer is one published stream. Its relay exists from creation so
// consumers can subscribe before the remote track has arrived; attach
// starts the pump once it does.
type producer struct {
	id        string
	kind      core.MediaKind
	transport *transport
	relay     *relay

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

func newProducer(t *transport, kind core.MediaKind) *producer {
	return &producer{
		id:        uuid.NewString(),
		kind:      kind,
		transport: t,
		relay:     newRelay(),
	}
}

func (p *producer) ID() string           { return p.id }
func (p *producer) Kind() core.MediaKind { return p.kind }

func (p *producer) attach(track *webrtc.TrackRemote) {
	logger := log.With().Str("module", "rtc.relay").Str("producer", p.id).Logger()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()
	go p.relay.loop(ctx, track, &logger)
}

func (p *producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.relay.markAllDelete()
	p.transport.dropPending(p)
	p.transport.router.dropProducer(p.id)
}

// consumer is one subscription to a producer, backed by a local RTP track
// fed from the producer's relay.
type consumer struct {
	id         string
	producerID string
	kind       core.MediaKind
	params     json.RawMessage
	transport  *transport
	sender     *webrtc.RTPSender
	out        *outTrack

	closeOnce sync.Once
}

func (c *consumer) ID() string                     { return c.id }
func (c *consumer) ProducerID() string             { return c.producerID }
func (c *consumer) Kind() core.MediaKind           { return c.kind }
func (c *consumer) RTPParameters() json.RawMessage { return c.params }

// Resume unpauses the out track. No-op if already running.
func (c *consumer) Resume() error {
	c.out.resume()
	return nil
}

func (c *consumer) Close() {
	c.closeOnce.Do(func() {
		c.out.markDelete()
		if err := c.transport.pc.RemoveTrack(c.sender); err != nil {
			log.Debug().Err(err).Str("module", "rtc").Str("consumer", c.id).Msg("remove track")
		}
		c.transport.dropConsumer(c.id)
	})
}
