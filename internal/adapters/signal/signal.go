package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"freechat/internal/app"
	"freechat/internal/config"
	"freechat/internal/core"
	"freechat/internal/protocol"
)

var ErrBackpressure = errors.New("backpressure")

// Controller bridges websocket connections to the coordinator. Each
// connection gets a server-issued session id and a buffered outbound
// channel; inbound frames are decoded here and dispatched by type.
type Controller struct {
	coord      *app.Coordinator
	limiter    *MessageRateLimiter
	readLimit  int64
	pingPeriod time.Duration
}

func NewController(coord *app.Coordinator, cfg *config.Config) *Controller {
	return &Controller{
		coord:      coord,
		limiter:    NewMessageRateLimiter(cfg.RateLimit, cfg.RateInterval),
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
	}
}

type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
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

func (c *WsConn) Close() {
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

// HandleSignal upgrades the request and registers the session. The
// coordinator delivers the public history before the read pump can
// feed it any event.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.readLimit)

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.coord.Connect(sid, conn)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, conn)
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
	}()
}

func (ctl *Controller) dispatch(sid core.SessionID, conn *WsConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(conn, "bad_payload")
		return
	}

	switch env.Type {
	case protocol.TypeSetUsername:
		ctl.handleSetUsername(sid, conn, data)
	case protocol.TypeChatMessage:
		ctl.handleChatMessage(sid, conn, data)
	case protocol.TypePrivateMessage:
		ctl.handlePrivateMessage(sid, conn, data)
	case protocol.TypeRequestDMHistory:
		ctl.handleDMHistoryRequest(sid, conn, data)
	case protocol.TypeDMTyping:
		ctl.handleTyping(sid, conn, data)
	case protocol.TypeJoinRoom:
		ctl.handleJoinRoom(sid, conn, data)
	case protocol.TypeRoomMessage:
		ctl.handleRoomMessage(sid, conn, data)
	case protocol.TypeKickUser:
		ctl.handleKickUser(sid, conn, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(conn, "unknown_event")
	}
}

// allow applies the per-session rate limit to mutating events.
func (ctl *Controller) allow(sid core.SessionID, conn *WsConn) bool {
	if ctl.limiter.Allow(sid) {
		return true
	}
	log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("rate limited")
	ctl.sendError(conn, "rate_limited")
	return false
}

func (ctl *Controller) sendError(conn *WsConn, msg string) {
	b, err := json.Marshal(protocol.Error{Type: protocol.TypeError, Error: msg})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode error frame")
		return
	}
	_ = conn.TrySend(b)
}
