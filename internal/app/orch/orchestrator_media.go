package orch

import (
	"context"
	"encoding/json"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

// CreateTransport lazily creates (or returns) the peer's transport for the
// requested direction. send requires publish rights; recv is denied while
// the peer is still waiting.
func (o *Orchestrator) CreateTransport(ctx context.Context, conn core.ConnectionID, dir core.TransportDirection) (*protocol.TransportCreated, error) {
	room, peer, err := o.peerOf(conn)
	if err != nil {
		return nil, err
	}
	switch dir {
	case core.DirectionSend:
		if !room.CanPeerProduce(conn) {
			return nil, core.ErrPermissionDenied
		}
	case core.DirectionRecv:
		if !peer.Role().CanConsume() {
			return nil, core.ErrPermissionDenied
		}
	default:
		return nil, core.ErrTransportNotFound
	}

	t, err := peer.EnsureTransport(ctx, dir, func(ctx context.Context, d core.TransportDirection) (core.Transport, error) {
		t, err := room.Router().CreateTransport(ctx, d)
		if err != nil {
			return nil, core.Collaborator("create transport", err)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return &protocol.TransportCreated{
		TransportID: t.ID(),
		Kind:        string(dir),
		Parameters:  t.Parameters(),
	}, nil
}

// ConnectTransport forwards DTLS parameters to whichever of the peer's two
// transports matches transportID.
func (o *Orchestrator) ConnectTransport(ctx context.Context, conn core.ConnectionID, transportID string, dtlsParameters json.RawMessage) error {
	_, peer, err := o.peerOf(conn)
	if err != nil {
		return err
	}
	t, ok := peer.TransportByID(transportID)
	if !ok {
		return core.ErrTransportNotFound
	}
	return core.Collaborator("connect transport", t.Connect(ctx, dtlsParameters))
}

// Produce publishes a stream on the peer's send transport. Permission is
// re-checked here, not only at transport creation: a demotion may have
// landed while this call was in flight.
func (o *Orchestrator) Produce(ctx context.Context, conn core.ConnectionID, transportID string, kind core.MediaKind, rtpParameters json.RawMessage) (string, error) {
	room, peer, err := o.peerOf(conn)
	if err != nil {
		return "", err
	}
	if !room.CanPeerProduce(conn) {
		return "", core.ErrPermissionDenied
	}
	st := peer.SendTransport()
	if st == nil || st.ID() != transportID {
		return "", core.ErrTransportNotFound
	}
	producer, err := st.Produce(ctx, kind, rtpParameters)
	if err != nil {
		return "", core.Collaborator("produce", err)
	}
	if !peer.AddProducer(producer) {
		// Demoted between the permission check and the engine returning.
		producer.Close()
		return "", core.ErrPermissionDenied
	}
	o.broadcast(room, conn, protocol.NewProducer{
		Envelope:     protocol.Envelope{Type: protocol.TypeNewProducer},
		ProducerID:   producer.ID(),
		ConnectionID: conn,
		Kind:         producer.Kind(),
		DisplayName:  peer.Identity().DisplayName,
	})
	return producer.ID(), nil
}

// Consume subscribes the peer to another peer's producer, lazily creating
// the recv transport. The engine must confirm capability compatibility
// before anything is created.
func (o *Orchestrator) Consume(ctx context.Context, conn core.ConnectionID, producerID string, rtpCapabilities json.RawMessage) (*protocol.Consumed, error) {
	room, peer, err := o.peerOf(conn)
	if err != nil {
		return nil, err
	}
	if !peer.Role().CanConsume() {
		return nil, core.ErrPermissionDenied
	}
	if !room.Router().CanConsume(producerID, rtpCapabilities) {
		return nil, core.ErrIncompatibleCapabilities
	}
	t, err := peer.EnsureTransport(ctx, core.DirectionRecv, func(ctx context.Context, d core.TransportDirection) (core.Transport, error) {
		t, err := room.Router().CreateTransport(ctx, d)
		if err != nil {
			return nil, core.Collaborator("create transport", err)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	consumer, err := t.Consume(ctx, producerID, rtpCapabilities)
	if err != nil {
		return nil, core.Collaborator("consume", err)
	}
	if !peer.AddConsumer(consumer) {
		consumer.Close()
		return nil, core.ErrPeerNotFound
	}
	return &protocol.Consumed{
		ConsumerID:    consumer.ID(),
		ProducerID:    consumer.ProducerID(),
		Kind:          consumer.Kind(),
		RTPParameters: consumer.RTPParameters(),
	}, nil
}

// ResumeConsumer unpauses a consumer. No-op if it is already running.
func (o *Orchestrator) ResumeConsumer(conn core.ConnectionID, consumerID string) error {
	_, peer, err := o.peerOf(conn)
	if err != nil {
		return err
	}
	consumer, ok := peer.Consumer(consumerID)
	if !ok {
		return core.ErrConsumerNotFound
	}
	return core.Collaborator("resume consumer", consumer.Resume())
}
