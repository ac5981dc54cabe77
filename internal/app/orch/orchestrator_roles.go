package orch

import (
	"fmt"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

// ApproveJoin lets the host admit a waiting peer as consumer, or straight
// to producer when promote is set.
func (o *Orchestrator) ApproveJoin(conn core.ConnectionID, target core.ConnectionID, promote bool) error {
	room, err := o.RoomOf(conn)
	if err != nil {
		return err
	}
	role, err := room.ApproveJoin(conn, target, promote)
	if err != nil {
		return err
	}
	if peer, ok := room.GetPeer(target); ok {
		sendTo(peer, protocol.JoinApproved{
			Envelope: protocol.Envelope{Type: protocol.TypeJoinApproved},
			Role:     role,
			Promote:  promote,
		})
	}
	o.broadcastParticipants(room)
	return nil
}

// PromoteToProducer grants speaking rights to a consumer.
func (o *Orchestrator) PromoteToProducer(conn core.ConnectionID, target core.ConnectionID) error {
	room, err := o.RoomOf(conn)
	if err != nil {
		return err
	}
	if err := room.PromoteToProducer(conn, target); err != nil {
		return err
	}
	if peer, ok := room.GetPeer(target); ok {
		sendTo(peer, protocol.RoleChanged{
			Envelope: protocol.Envelope{Type: protocol.TypePromotedToProducer},
			Role:     peer.Role(),
		})
	}
	o.broadcastParticipants(room)
	return nil
}

// DemoteToConsumer revokes speaking rights; the room closes the target's
// producers and send transport as part of the transition.
func (o *Orchestrator) DemoteToConsumer(conn core.ConnectionID, target core.ConnectionID) error {
	room, err := o.RoomOf(conn)
	if err != nil {
		return err
	}
	if err := room.DemoteToConsumer(conn, target); err != nil {
		return err
	}
	if peer, ok := room.GetPeer(target); ok {
		sendTo(peer, protocol.RoleChanged{
			Envelope: protocol.Envelope{Type: protocol.TypeDemotedToConsumer},
			Role:     peer.Role(),
		})
	}
	o.broadcastParticipants(room)
	return nil
}

// RequestSpeakingPermission forwards a permission request to the host. It
// never changes role state by itself.
func (o *Orchestrator) RequestSpeakingPermission(conn core.ConnectionID) error {
	room, peer, err := o.peerOf(conn)
	if err != nil {
		return err
	}
	if peer.Role().CanProduce() {
		return fmt.Errorf("%w: already have speaking permission", core.ErrPermissionDenied)
	}
	host, ok := room.Host()
	if !ok {
		return core.ErrPeerNotFound
	}
	identity := peer.Identity()
	sendTo(host, protocol.SpeakingPermissionRequest{
		Envelope:     protocol.Envelope{Type: protocol.TypeSpeakingPermissionRequest},
		ConnectionID: conn,
		UserID:       identity.UserID,
		DisplayName:  identity.DisplayName,
	})
	return nil
}
