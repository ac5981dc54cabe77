// Package rtc is the pion-backed media engine. It implements the core
// collaborator contract: routers scoped to a fixed codec set, SDP-carrying
// transports, and producer→consumer RTP fan-out.
package rtc

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/suryapratap64/Open-stream/internal/core"
)

type Engine struct {
	cfg webrtc.Configuration
}

func NewEngine(stunServers []string) *Engine {
	if len(stunServers) == 0 {
		stunServers = []string{"stun:stun.l.google.com:19302"}
	}
	return &Engine{
		cfg: webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{{URLs: stunServers}},
		},
	}
}

func (e *Engine) CreateRouter(ctx context.Context, codecs []core.Codec) (core.Router, error) {
	m := &webrtc.MediaEngine{}
	for _, c := range codecs {
		typ := webrtc.RTPCodecTypeAudio
		pt := webrtc.PayloadType(111)
		if c.Kind == core.KindVideo {
			typ = webrtc.RTPCodecTypeVideo
			pt = webrtc.PayloadType(96)
		}
		params := webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:  c.MimeType,
				ClockRate: c.ClockRate,
				Channels:  c.Channels,
			},
			PayloadType: pt,
		}
		if err := m.RegisterCodec(params, typ); err != nil {
			return nil, err
		}
	}
	caps, err := json.Marshal(struct {
		Codecs []core.Codec `json:"codecs"`
	}{Codecs: codecs})
	if err != nil {
		return nil, err
	}
	return newRouter(webrtc.NewAPI(webrtc.WithMediaEngine(m)), e.cfg, codecs, caps), nil
}
