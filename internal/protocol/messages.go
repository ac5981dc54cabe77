// Package protocol defines the tagged signaling messages exchanged over the
// websocket. Every message carries a type discriminator; requests may carry
// a client-chosen rid that is echoed on the matching response.
package protocol

import (
	"encoding/json"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/domain"
)

// Client → server message types.
const (
	TypeJoin                      = "join"
	TypeLeave                     = "leave"
	TypePing                      = "ping"
	TypeCreateTransport           = "createTransport"
	TypeConnectTransport          = "connectTransport"
	TypeProduce                   = "produce"
	TypeConsume                   = "consume"
	TypeResumeConsumer            = "resumeConsumer"
	TypeApproveJoin               = "approveJoin"
	TypePromoteToProducer         = "promoteToProducer"
	TypeDemoteToConsumer          = "demoteToConsumer"
	TypeRequestSpeakingPermission = "requestSpeakingPermission"
)

// Server → client response types.
const (
	TypeJoined           = "joined"
	TypeTransportCreated = "transportCreated"
	TypeProduced         = "produced"
	TypeConsumed         = "consumed"
	TypeAck              = "ack"
	TypePong             = "pong"
	TypeError            = "error"
)

// Server → client event types.
const (
	TypePeerJoined                = "peerJoined"
	TypePeerLeft                  = "peerLeft"
	TypeNewProducer               = "newProducer"
	TypeJoinRequest               = "joinRequest"
	TypeJoinApproved              = "joinApproved"
	TypePromotedToProducer        = "promotedToProducer"
	TypeDemotedToConsumer         = "demotedToConsumer"
	TypeParticipantsUpdated       = "participantsUpdated"
	TypeSpeakingPermissionRequest = "speakingPermissionRequest"
)

// Envelope is the minimal shape used to dispatch an incoming message.
type Envelope struct {
	Type string `json:"type"`
	RID  string `json:"rid,omitempty"`
}

type JoinRequest struct {
	Envelope
	Room        string `json:"room"`
	UserID      string `json:"userId"`
	DisplayName string `json:"name,omitempty"`
	InviteToken string `json:"inviteToken,omitempty"`
}

type CreateTransportRequest struct {
	Envelope
	Room string `json:"room,omitempty"`
	Kind string `json:"kind"` // send | recv
}

type ConnectTransportRequest struct {
	Envelope
	TransportID    string          `json:"transportId"`
	DTLSParameters json.RawMessage `json:"dtlsParameters"`
}

type ProduceRequest struct {
	Envelope
	TransportID   string          `json:"transportId"`
	Kind          core.MediaKind  `json:"kind"`
	RTPParameters json.RawMessage `json:"rtpParameters"`
}

type ConsumeRequest struct {
	Envelope
	ProducerID      string          `json:"producerId"`
	RTPCapabilities json.RawMessage `json:"rtpCapabilities"`
}

type ResumeConsumerRequest struct {
	Envelope
	ConsumerID string `json:"consumerId"`
}

// PeerTargetRequest covers approveJoin / promote / demote, which all name
// the affected peer by connection id.
type PeerTargetRequest struct {
	Envelope
	PeerID  string `json:"peerId"`
	Promote bool   `json:"promote,omitempty"` // approveJoin only
}

// Joined is the join response.
type Joined struct {
	Envelope
	Room               string                 `json:"room"`
	Role               domain.Role            `json:"role"`
	RouterCapabilities json.RawMessage        `json:"routerRtpCapabilities"`
	ExistingProducers  []core.ProducerInfo    `json:"existingProducers"`
	Participants       []core.ParticipantInfo `json:"participants"`
}

type TransportCreated struct {
	Envelope
	TransportID string          `json:"transportId"`
	Kind        string          `json:"kind"`
	Parameters  json.RawMessage `json:"parameters"`
}

type Produced struct {
	Envelope
	ProducerID string `json:"producerId"`
}

type Consumed struct {
	Envelope
	ConsumerID    string          `json:"consumerId"`
	ProducerID    string          `json:"producerId"`
	Kind          core.MediaKind  `json:"kind"`
	RTPParameters json.RawMessage `json:"rtpParameters"`
}

// Ack acknowledges requests that carry no payload back.
type Ack struct {
	Envelope
	Op string `json:"op,omitempty"`
}

// Events.

type PeerJoined struct {
	Envelope
	Peer core.ParticipantInfo `json:"peer"`
}

type PeerLeft struct {
	Envelope
	ConnectionID core.ConnectionID `json:"connectionId"`
}

type NewProducer struct {
	Envelope
	ProducerID   string            `json:"producerId"`
	ConnectionID core.ConnectionID `json:"connectionId"`
	Kind         core.MediaKind    `json:"kind"`
	DisplayName  string            `json:"displayName"`
}

// JoinRequested is sent to the host when a peer lands in waiting.
type JoinRequested struct {
	Envelope
	ConnectionID core.ConnectionID `json:"connectionId"`
	UserID       domain.UserID     `json:"userId"`
	DisplayName  string            `json:"displayName"`
}

type JoinApproved struct {
	Envelope
	Role    domain.Role `json:"role"`
	Promote bool        `json:"promote"`
}

type RoleChanged struct {
	Envelope
	Role domain.Role `json:"role"`
}

type ParticipantsUpdated struct {
	Envelope
	Participants []core.ParticipantInfo `json:"participants"`
}

type SpeakingPermissionRequest struct {
	Envelope
	ConnectionID core.ConnectionID `json:"connectionId"`
	UserID       domain.UserID     `json:"userId"`
	DisplayName  string            `json:"displayName"`
}
