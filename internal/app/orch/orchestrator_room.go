package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/domain"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

// Join admits a connection into a room, creating the room (and its invite
// session) on first reference. The invite token is only required for rooms
// that gate entry on one; when present it must be valid and bound to the
// requested room.
func (o *Orchestrator) Join(ctx context.Context, conn core.ConnectionID, sig core.SignalConnection, req protocol.JoinRequest) (*protocol.Joined, error) {
	identity, err := domain.NewIdentity(req.UserID, req.DisplayName)
	if err != nil {
		return nil, err
	}
	if req.InviteToken != "" {
		roomID, valid := o.Invites.Verify(req.InviteToken)
		if !valid || roomID != req.Room {
			return nil, core.ErrInvalidInviteToken
		}
	}

	// A connection is in at most one room. Joining again applies full leave
	// semantics to the previous room first, so nothing owned there outlives
	// the binding.
	o.Disconnect(conn)

	room, err := o.Registry.EnsureRoom(ctx, domain.RoomID(req.Room), identity.DisplayName)
	if err != nil {
		return nil, err
	}
	peer, err := room.Admit(conn, identity, sig)
	if err != nil {
		return nil, err
	}
	o.bind(conn, room.ID())

	role := peer.Role()
	o.broadcast(room, conn, protocol.PeerJoined{
		Envelope: protocol.Envelope{Type: protocol.TypePeerJoined},
		Peer:     peer.Info(),
	})
	if role == domain.RoleWaiting {
		if host, ok := room.Host(); ok {
			sendTo(host, protocol.JoinRequested{
				Envelope:     protocol.Envelope{Type: protocol.TypeJoinRequest},
				ConnectionID: conn,
				UserID:       identity.UserID,
				DisplayName:  identity.DisplayName,
			})
		}
	}

	log.Info().Str("module", "orch").Str("conn", string(conn)).
		Str("room", req.Room).Str("role", string(role)).Msg("joined")

	return &protocol.Joined{
		Room:               req.Room,
		Role:               role,
		RouterCapabilities: room.RTPCapabilities(),
		ExistingProducers:  room.ProducersSnapshot(conn),
		Participants:       room.Participants(),
	}, nil
}

// Disconnect tears down everything the connection owned: producers,
// consumers, transports, room membership. Closes are best-effort; when the
// last peer leaves, the room and its invite session go with it.
func (o *Orchestrator) Disconnect(conn core.ConnectionID) {
	roomID, ok := o.unbind(conn)
	if !ok {
		return
	}
	room, ok := o.Registry.Get(roomID)
	if !ok {
		return
	}
	_, remaining, removed := room.RemovePeer(conn)
	if !removed {
		return
	}
	if remaining == 0 {
		o.Registry.Remove(roomID)
		return
	}
	o.broadcast(room, conn, protocol.PeerLeft{
		Envelope:     protocol.Envelope{Type: protocol.TypePeerLeft},
		ConnectionID: conn,
	})
}
