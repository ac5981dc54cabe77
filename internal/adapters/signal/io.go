package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sid core.ConnectionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, sid, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, sid core.ConnectionID, c *wsConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendErrorCode(c, env, protocol.CodeBadPayload, "malformed message")
		return
	}

	switch env.Type {
	case protocol.TypeJoin:
		ctl.handleJoin(ctx, sid, c, data)
	case protocol.TypeLeave:
		ctl.handleLeave(sid, c, env)
	case protocol.TypePing:
		ctl.handlePing(c, env)
	case protocol.TypeCreateTransport:
		ctl.handleCreateTransport(ctx, sid, c, data)
	case protocol.TypeConnectTransport:
		ctl.handleConnectTransport(ctx, sid, c, data)
	case protocol.TypeProduce:
		ctl.handleProduce(ctx, sid, c, data)
	case protocol.TypeConsume:
		ctl.handleConsume(ctx, sid, c, data)
	case protocol.TypeResumeConsumer:
		ctl.handleResumeConsumer(sid, c, data)
	case protocol.TypeApproveJoin:
		ctl.handleApproveJoin(sid, c, data)
	case protocol.TypePromoteToProducer:
		ctl.handlePromote(sid, c, data)
	case protocol.TypeDemoteToConsumer:
		ctl.handleDemote(sid, c, data)
	case protocol.TypeRequestSpeakingPermission:
		ctl.handleRequestSpeakingPermission(sid, c, env)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendErrorCode(c, env, protocol.CodeBadPayload, "unknown message type")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// sendError reports a failed request back on the issuing connection.
func (ctl *Controller) sendError(c *wsConn, env protocol.Envelope, err error) {
	ctl.sendJSON(c, protocol.ErrorResponse{
		Envelope: protocol.Envelope{Type: protocol.TypeError, RID: env.RID},
		Op:       env.Type,
		Code:     protocol.CodeFor(err),
		Error:    err.Error(),
	})
}

func (ctl *Controller) sendErrorCode(c *wsConn, env protocol.Envelope, code, msg string) {
	ctl.sendJSON(c, protocol.ErrorResponse{
		Envelope: protocol.Envelope{Type: protocol.TypeError, RID: env.RID},
		Op:       env.Type,
		Code:     code,
		Error:    msg,
	})
}
