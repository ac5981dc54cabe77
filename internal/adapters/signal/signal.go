package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/app/orch"
	"github.com/suryapratap64/Open-stream/internal/config"
	"github.com/suryapratap64/Open-stream/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

const joinRateLimit = 5

// Controller owns the websocket signaling surface for all connections.
type Controller struct {
	Orch *orch.Orchestrator

	limiter    *JoinRateLimiter
	readLimit  int64
	pingPeriod time.Duration
}

func NewController(o *orch.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{
		Orch:       o,
		limiter:    NewJoinRateLimiter(joinRateLimit, time.Minute),
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
	}
}

// wsConn wraps one websocket with a buffered, non-blocking sender.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection's pumps. Every
// upgrade gets its own connection id: the client-token cookie identifies the
// browser, but two tabs of one browser are two connections.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.ConnectionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(sid)).
		Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
