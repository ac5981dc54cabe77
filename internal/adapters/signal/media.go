package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

func (ctl *Controller) handleCreateTransport(ctx context.Context, sid core.ConnectionID, c *wsConn, data []byte) {
	var req protocol.CreateTransportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "bad createTransport payload")
		return
	}
	var dir core.TransportDirection
	switch req.Kind {
	case "send":
		dir = core.DirectionSend
	case "recv":
		dir = core.DirectionRecv
	default:
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "kind must be send or recv")
		return
	}

	res, err := ctl.Orch.CreateTransport(ctx, sid, dir)
	if err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	res.Type = protocol.TypeTransportCreated
	res.RID = req.RID
	ctl.sendJSON(c, res)
}

func (ctl *Controller) handleConnectTransport(ctx context.Context, sid core.ConnectionID, c *wsConn, data []byte) {
	var req protocol.ConnectTransportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "bad connectTransport payload")
		return
	}
	if err := ctl.Orch.ConnectTransport(ctx, sid, req.TransportID, req.DTLSParameters); err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	ctl.sendJSON(c, protocol.Ack{
		Envelope: protocol.Envelope{Type: protocol.TypeAck, RID: req.RID},
		Op:       protocol.TypeConnectTransport,
	})
}

func (ctl *Controller) handleProduce(ctx context.Context, sid core.ConnectionID, c *wsConn, data []byte) {
	var req protocol.ProduceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "bad produce payload")
		return
	}
	if req.Kind != core.KindAudio && req.Kind != core.KindVideo {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "kind must be audio or video")
		return
	}

	producerID, err := ctl.Orch.Produce(ctx, sid, req.TransportID, req.Kind, req.RTPParameters)
	if err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(sid)).
		Str("producer", producerID).Str("kind", string(req.Kind)).Msg("producing")
	ctl.sendJSON(c, protocol.Produced{
		Envelope:   protocol.Envelope{Type: protocol.TypeProduced, RID: req.RID},
		ProducerID: producerID,
	})
}

func (ctl *Controller) handleConsume(ctx context.Context, sid core.ConnectionID, c *wsConn, data []byte) {
	var req protocol.ConsumeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "bad consume payload")
		return
	}
	res, err := ctl.Orch.Consume(ctx, sid, req.ProducerID, req.RTPCapabilities)
	if err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	res.Type = protocol.TypeConsumed
	res.RID = req.RID
	ctl.sendJSON(c, res)
}

func (ctl *Controller) handleResumeConsumer(sid core.ConnectionID, c *wsConn, data []byte) {
	var req protocol.ResumeConsumerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "bad resumeConsumer payload")
		return
	}
	if err := ctl.Orch.ResumeConsumer(sid, req.ConsumerID); err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	ctl.sendJSON(c, protocol.Ack{
		Envelope: protocol.Envelope{Type: protocol.TypeAck, RID: req.RID},
		Op:       protocol.TypeResumeConsumer,
	})
}
