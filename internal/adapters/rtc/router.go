package rtc

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
)

type router struct {
	api    *webrtc.API
	cfg    webrtc.Configuration
	codecs []core.Codec
	caps   json.RawMessage

	mu         sync.Mutex
	transports map[string]*transport
	producers  map[string]*producer
	closed     bool
}

func newRouter(api *webrtc.API, cfg webrtc.Configuration, codecs []core.Codec, caps json.RawMessage) *router {
	return &router{
		api:        api,
		cfg:        cfg,
		codecs:     codecs,
		caps:       caps,
		transports: make(map[string]*transport),
		producers:  make(map[string]*producer),
	}
}

func (r *router) RTPCapabilities() json.RawMessage { return r.caps }

func (r *router) CreateTransport(ctx context.Context, dir core.TransportDirection) (core.Transport, error) {
	pc, err := r.api.NewPeerConnection(r.cfg)
	if err != nil {
		return nil, err
	}
	t := &transport{
		id:        uuid.NewString(),
		dir:       dir,
		pc:        pc,
		router:    r,
		pending:   make(map[core.MediaKind]*producer),
		remote:    make(map[core.MediaKind]*webrtc.TrackRemote),
		consumers: make(map[string]*consumer),
	}

	if dir == core.DirectionSend {
		// The client publishes on a send transport, so the engine side
		// receives: one transceiver per codec kind.
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				_ = pc.Close()
				return nil, err
			}
		}
		pc.OnTrack(t.onTrack)
	} else {
		// Anchor the recv-side offer; media sections are added as
		// consumers are attached.
		if _, err := pc.CreateDataChannel("control", nil); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return nil, err
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		_ = pc.Close()
		return nil, ctx.Err()
	}

	t.params, err = json.Marshal(struct {
		ID  string `json:"id"`
		SDP string `json:"sdp"`
	}{ID: t.id, SDP: pc.LocalDescription().SDP})
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	r.mu.Lock()
	r.transports[t.id] = t
	r.mu.Unlock()
	log.Debug().Str("module", "rtc").Str("transport", t.id).Str("dir", string(dir)).Msg("transport created")
	return t, nil
}

// CanConsume fails closed: unknown producers and unparsable or empty
// capability sets are never consumable.
func (r *router) CanConsume(producerID string, rtpCapabilities json.RawMessage) bool {
	r.mu.Lock()
	p, ok := r.producers[producerID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	var caps struct {
		Codecs []struct {
			MimeType string `json:"mimeType"`
		} `json:"codecs"`
	}
	if err := json.Unmarshal(rtpCapabilities, &caps); err != nil {
		return false
	}
	mime := r.mimeFor(p.kind)
	for _, c := range caps.Codecs {
		if strings.EqualFold(c.MimeType, mime) {
			return true
		}
	}
	return false
}

func (r *router) mimeFor(kind core.MediaKind) string {
	for _, c := range r.codecs {
		if c.Kind == kind {
			return c.MimeType
		}
	}
	return ""
}

func (r *router) codecCapability(kind core.MediaKind) webrtc.RTPCodecCapability {
	for _, c := range r.codecs {
		if c.Kind == kind {
			return webrtc.RTPCodecCapability{
				MimeType:  c.MimeType,
				ClockRate: c.ClockRate,
				Channels:  c.Channels,
			}
		}
	}
	return webrtc.RTPCodecCapability{}
}

func (r *router) registerProducer(p *producer) {
	r.mu.Lock()
	r.producers[p.id] = p
	r.mu.Unlock()
}

func (r *router) producerByID(id string) (*producer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.producers[id]
	return p, ok
}

func (r *router) dropProducer(id string) {
	r.mu.Lock()
	delete(r.producers, id)
	r.mu.Unlock()
}

func (r *router) dropTransport(id string) {
	r.mu.Lock()
	delete(r.transports, id)
	r.mu.Unlock()
}

func (r *router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	transports := make([]*transport, 0, len(r.transports))
	for _, t := range r.transports {
		transports = append(transports, t)
	}
	r.transports = make(map[string]*transport)
	r.producers = make(map[string]*producer)
	r.mu.Unlock()

	for _, t := range transports {
		t.Close()
	}
	log.Debug().Str("module", "rtc").Msg("router closed")
}
