package rtc

import (
	"context"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// relay fans RTP packets from one remote track out to the consumers
// subscribed to its producer.
type relay struct {
	mu   sync.RWMutex
	outs map[string]*outTrack
}

func newRelay() *relay {
	return &relay{outs: make(map[string]*outTrack)}
}

func (r *relay) addOut(id string, ot *outTrack) {
	r.mu.Lock()
	r.outs[id] = ot
	r.mu.Unlock()
}

// loop reads RTP packets from the source track and forwards them to all
// out tracks until the context is canceled or the track ends.
func (r *relay) loop(ctx context.Context, src *webrtc.TrackRemote, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, marking all out tracks for delete")
			r.markAllDelete()
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			logger.Error().Err(err).Msg("relay read RTP error, stopping")
			r.markAllDelete()
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	dirty := false
	for id, ot := range r.outs {
		switch ot.getState() {
		case trackStateDelete:
			dirty = true
			continue
		case trackStatePaused:
			continue
		}
		if err := ot.track.WriteRTP(pkt); err != nil {
			logger.Error().Err(err).Str("out", id).Msg("relay write RTP error, marking out track as delete")
			ot.markDelete()
			dirty = true
		}
	}
	r.mu.RUnlock()

	// Cleanup is done outside the RLock.
	if dirty {
		r.cleanupDeleted()
	}
}

func (r *relay) cleanupDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ot := range r.outs {
		if ot.getState() == trackStateDelete {
			delete(r.outs, id)
		}
	}
}

func (r *relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outs {
		ot.markDelete()
	}
}
