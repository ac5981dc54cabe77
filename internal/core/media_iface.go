package core

import (
	"context"
	"encoding/json"
)

type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// Codec describes one entry of the fixed codec set a router is created with.
type Codec struct {
	Kind      MediaKind `json:"kind"`
	MimeType  string    `json:"mimeType"`
	ClockRate uint32    `json:"clockRate"`
	Channels  uint16    `json:"channels,omitempty"`
}

// DefaultCodecs is the only codec set routers are ever created with:
// one audio codec and one video codec.
func DefaultCodecs() []Codec {
	return []Codec{
		{Kind: KindAudio, MimeType: "audio/opus", ClockRate: 48000, Channels: 2},
		{Kind: KindVideo, MimeType: "video/VP8", ClockRate: 90000},
	}
}

type TransportDirection string

const (
	DirectionSend TransportDirection = "send"
	DirectionRecv TransportDirection = "recv"
)

// Engine is the media-routing collaborator. This layer only calls opaque
// operations on it and stores the handles it returns; it never looks inside
// the raw parameter payloads.
type Engine interface {
	CreateRouter(ctx context.Context, codecs []Codec) (Router, error)
}

// Router is the per-room media handle. Created once per room, closed once
// per room.
type Router interface {
	// RTPCapabilities is the negotiated capability set, opaque to this layer.
	RTPCapabilities() json.RawMessage
	CreateTransport(ctx context.Context, dir TransportDirection) (Transport, error)
	// CanConsume reports whether a peer with the given capabilities can
	// receive the producer. Unknown producers fail closed.
	CanConsume(producerID string, rtpCapabilities json.RawMessage) bool
	// Close is idempotent.
	Close()
}

// Transport is one network path between a peer and the engine. A peer owns
// at most one send and one recv transport.
type Transport interface {
	ID() string
	// Parameters is the opaque blob the client needs to connect. Stable for
	// the lifetime of the transport.
	Parameters() json.RawMessage
	Connect(ctx context.Context, dtlsParameters json.RawMessage) error
	Produce(ctx context.Context, kind MediaKind, rtpParameters json.RawMessage) (Producer, error)
	Consume(ctx context.Context, producerID string, rtpCapabilities json.RawMessage) (Consumer, error)
	// Close is idempotent.
	Close()
}

// Producer is an outbound media stream published by a peer.
type Producer interface {
	ID() string
	Kind() MediaKind
	// Close is idempotent.
	Close()
}

// Consumer is an inbound media stream derived from another peer's producer.
// Consumers start paused; Resume unpauses and is a no-op when running.
type Consumer interface {
	ID() string
	ProducerID() string
	Kind() MediaKind
	RTPParameters() json.RawMessage
	Resume() error
	// Close is idempotent.
	Close()
}
