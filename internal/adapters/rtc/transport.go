package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
)

type transport struct {
	id     string
	dir    core.TransportDirection
	pc     *webrtc.PeerConnection
	router *router
	params json.RawMessage

	mu        sync.Mutex
	pending   map[core.MediaKind]*producer           // produced, waiting for the remote track
	remote    map[core.MediaKind]*webrtc.TrackRemote // arrived before produce
	consumers map[string]*consumer
	closed    bool
}

func (t *transport) ID() string                  { return t.id }
func (t *transport) Parameters() json.RawMessage { return t.params }

// Connect applies the client's answer. The blob is opaque to the layers
// above; this engine expects {"sdp": "..."}.
func (t *transport) Connect(ctx context.Context, dtlsParameters json.RawMessage) error {
	var p struct {
		SDP string `json:"sdp"`
	}
	if err := json.Unmarshal(dtlsParameters, &p); err != nil {
		return err
	}
	if p.SDP == "" {
		return errors.New("missing sdp answer")
	}
	return t.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  p.SDP,
	})
}

func (t *transport) onTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	kind := core.KindAudio
	if track.Kind() == webrtc.RTPCodecTypeVideo {
		kind = core.KindVideo
	}
	t.mu.Lock()
	pr, ok := t.pending[kind]
	if ok {
		delete(t.pending, kind)
	} else {
		t.remote[kind] = track
	}
	t.mu.Unlock()
	log.Info().Str("module", "rtc").Str("transport", t.id).
		Str("kind", string(kind)).Str("track", track.ID()).Msg("remote track")
	if ok {
		pr.attach(track)
	}
}

func (t *transport) Produce(ctx context.Context, kind core.MediaKind, rtpParameters json.RawMessage) (core.Producer, error) {
	if t.dir != core.DirectionSend {
		return nil, errors.New("produce on a recv transport")
	}
	pr := newProducer(t, kind)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errors.New("transport closed")
	}
	track, have := t.remote[kind]
	if have {
		delete(t.remote, kind)
	} else {
		t.pending[kind] = pr
	}
	t.mu.Unlock()
	if have {
		pr.attach(track)
	}
	t.router.registerProducer(pr)
	return pr, nil
}

func (t *transport) Consume(ctx context.Context, producerID string, rtpCapabilities json.RawMessage) (core.Consumer, error) {
	if t.dir != core.DirectionRecv {
		return nil, errors.New("consume on a send transport")
	}
	pr, ok := t.router.producerByID(producerID)
	if !ok {
		return nil, errors.New("unknown producer")
	}
	capability := t.router.codecCapability(pr.kind)
	local, err := webrtc.NewTrackLocalStaticRTP(capability, uuid.NewString(), producerID)
	if err != nil {
		return nil, err
	}
	sender, err := t.pc.AddTrack(local)
	if err != nil {
		return nil, err
	}
	c := &consumer{
		id:         uuid.NewString(),
		producerID: producerID,
		kind:       pr.kind,
		transport:  t,
		sender:     sender,
		out:        newOutTrack(local),
	}
	// Consumers start paused; resumeConsumer unpauses them once the client
	// is ready to receive.
	c.out.markPaused()
	pr.relay.addOut(c.id, c.out)

	c.params, err = json.Marshal(struct {
		ConsumerID string         `json:"consumerId"`
		ProducerID string         `json:"producerId"`
		Kind       core.MediaKind `json:"kind"`
		MimeType   string         `json:"mimeType"`
		ClockRate  uint32         `json:"clockRate"`
		Channels   uint16         `json:"channels,omitempty"`
		TrackID    string         `json:"trackId"`
	}{
		ConsumerID: c.id,
		ProducerID: producerID,
		Kind:       pr.kind,
		MimeType:   capability.MimeType,
		ClockRate:  capability.ClockRate,
		Channels:   capability.Channels,
		TrackID:    local.ID(),
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	t.mu.Lock()
	t.consumers[c.id] = c
	t.mu.Unlock()
	return c, nil
}

func (t *transport) dropConsumer(id string) {
	t.mu.Lock()
	delete(t.consumers, id)
	t.mu.Unlock()
}

func (t *transport) dropPending(pr *producer) {
	t.mu.Lock()
	if cur, ok := t.pending[pr.kind]; ok && cur == pr {
		delete(t.pending, pr.kind)
	}
	t.mu.Unlock()
}

// Close is idempotent. Closing the peer connection stops every track that
// flowed over this transport.
func (t *transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	if err := t.pc.Close(); err != nil {
		log.Warn().Err(err).Str("module", "rtc").Str("transport", t.id).Msg("pc close")
	}
	t.router.dropTransport(t.id)
}
