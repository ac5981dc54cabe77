package signal

import (
	"encoding/json"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

func (ctl *Controller) handleApproveJoin(sid core.ConnectionID, c *wsConn, data []byte) {
	req, ok := ctl.peerTarget(c, data)
	if !ok {
		return
	}
	if err := ctl.Orch.ApproveJoin(sid, core.ConnectionID(req.PeerID), req.Promote); err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	ctl.ack(c, req.Envelope)
}

func (ctl *Controller) handlePromote(sid core.ConnectionID, c *wsConn, data []byte) {
	req, ok := ctl.peerTarget(c, data)
	if !ok {
		return
	}
	if err := ctl.Orch.PromoteToProducer(sid, core.ConnectionID(req.PeerID)); err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	ctl.ack(c, req.Envelope)
}

func (ctl *Controller) handleDemote(sid core.ConnectionID, c *wsConn, data []byte) {
	req, ok := ctl.peerTarget(c, data)
	if !ok {
		return
	}
	if err := ctl.Orch.DemoteToConsumer(sid, core.ConnectionID(req.PeerID)); err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	ctl.ack(c, req.Envelope)
}

func (ctl *Controller) handleRequestSpeakingPermission(sid core.ConnectionID, c *wsConn, env protocol.Envelope) {
	if err := ctl.Orch.RequestSpeakingPermission(sid); err != nil {
		ctl.sendError(c, env, err)
		return
	}
	ctl.ack(c, env)
}

func (ctl *Controller) peerTarget(c *wsConn, data []byte) (protocol.PeerTargetRequest, bool) {
	var req protocol.PeerTargetRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "bad payload")
		return req, false
	}
	if req.PeerID == "" {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "peerId is required")
		return req, false
	}
	return req, true
}

func (ctl *Controller) ack(c *wsConn, env protocol.Envelope) {
	ctl.sendJSON(c, protocol.Ack{
		Envelope: protocol.Envelope{Type: protocol.TypeAck, RID: env.RID},
		Op:       env.Type,
	})
}
