package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/domain"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

func (ctl *Controller) handleJoin(ctx context.Context, sid core.ConnectionID, c *wsConn, data []byte) {
	var req protocol.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "bad join payload")
		return
	}
	if req.Room == "" || req.UserID == "" {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeBadPayload, "room and userId are required")
		return
	}
	if !ctl.limiter.Allow(domain.UserID(req.UserID)) {
		ctl.sendErrorCode(c, req.Envelope, protocol.CodeRateLimited, "too many join attempts")
		return
	}

	res, err := ctl.Orch.Join(ctx, sid, c, req)
	if err != nil {
		ctl.sendError(c, req.Envelope, err)
		return
	}
	res.Type = protocol.TypeJoined
	res.RID = req.RID
	ctl.sendJSON(c, res)
}

// handleLeave applies disconnect semantics to the room; the websocket
// itself stays open so the client can join again.
func (ctl *Controller) handleLeave(sid core.ConnectionID, c *wsConn, env protocol.Envelope) {
	log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("leave")
	ctl.Orch.Disconnect(sid)
	ctl.sendJSON(c, protocol.Ack{
		Envelope: protocol.Envelope{Type: protocol.TypeAck, RID: env.RID},
		Op:       protocol.TypeLeave,
	})
}

func (ctl *Controller) handlePing(c *wsConn, env protocol.Envelope) {
	ctl.sendJSON(c, protocol.Envelope{Type: protocol.TypePong, RID: env.RID})
}
