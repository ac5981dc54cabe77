// Package orch sequences the signaling protocol for one connection at a
// time: join, transport negotiation, produce/consume, role changes and
// disconnect cleanup. State lives in core.Room/core.Peer; the orchestrator
// validates, orders and translates to and from the media engine.
package orch

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/domain"
	"github.com/suryapratap64/Open-stream/internal/invite"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

type Orchestrator struct {
	Registry *core.Registry
	Invites  *invite.Store

	mu       sync.RWMutex
	sessions map[core.ConnectionID]domain.RoomID
}

func New(registry *core.Registry, invites *invite.Store) *Orchestrator {
	return &Orchestrator{
		Registry: registry,
		Invites:  invites,
		sessions: make(map[core.ConnectionID]domain.RoomID),
	}
}

func (o *Orchestrator) bind(conn core.ConnectionID, room domain.RoomID) {
	o.mu.Lock()
	o.sessions[conn] = room
	o.mu.Unlock()
}

func (o *Orchestrator) unbind(conn core.ConnectionID) (domain.RoomID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	roomID, ok := o.sessions[conn]
	if ok {
		delete(o.sessions, conn)
	}
	return roomID, ok
}

// RoomOf resolves the room a connection joined.
func (o *Orchestrator) RoomOf(conn core.ConnectionID) (*core.Room, error) {
	o.mu.RLock()
	roomID, ok := o.sessions[conn]
	o.mu.RUnlock()
	if !ok {
		return nil, core.ErrRoomNotFound
	}
	room, ok := o.Registry.Get(roomID)
	if !ok {
		return nil, core.ErrRoomNotFound
	}
	return room, nil
}

func (o *Orchestrator) peerOf(conn core.ConnectionID) (*core.Room, *core.Peer, error) {
	room, err := o.RoomOf(conn)
	if err != nil {
		return nil, nil, err
	}
	peer, ok := room.GetPeer(conn)
	if !ok {
		return nil, nil, core.ErrPeerNotFound
	}
	return room, peer, nil
}

// sendTo delivers a direct event to one peer, best-effort.
func sendTo(p *core.Peer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal event")
		return
	}
	if err := p.Signal().TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "orch").
			Str("conn", string(p.ConnectionID())).Msg("event dropped")
	}
}

// broadcast fans an event out to everyone in the room except from.
func (o *Orchestrator) broadcast(room *core.Room, from core.ConnectionID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal broadcast")
		return
	}
	room.Broadcast(from, b)
}

// broadcastParticipants pushes a fresh participant list to the whole room
// after every role change.
func (o *Orchestrator) broadcastParticipants(room *core.Room) {
	o.broadcast(room, "", protocol.ParticipantsUpdated{
		Envelope:     protocol.Envelope{Type: protocol.TypeParticipantsUpdated},
		Participants: room.Participants(),
	})
}
