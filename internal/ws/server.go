package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gameroomgo/internal/protocol"
	"gameroomgo/internal/registry"
	"gameroomgo/internal/services/room"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second // must be < pongWait
	maxMessageSize  = 4096
	dispatchTimeout = 1900 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // dev-only
}

type WsServer struct {
	reg    *registry.Registry
	coord  room.ICoordinator
	router *Router
}

func NewWsServer(reg *registry.Registry, coord room.ICoordinator) *WsServer {
	srv := &WsServer{
		reg:    reg,
		coord:  coord,
		router: NewRouter(),
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	// ─────────────────── Client connected ────────────────────────
	conn := &ClientConn{rawConn: rawConn}
	connID := uuid.NewString()
	s.reg.Add(connID, conn)

	if err := conn.WriteJSON(protocol.Message(protocol.TypeWelcome,
		protocol.WelcomePayload{ConnectionID: connID})); err != nil {
		zap.L().Warn("ws.welcome", zap.Error(err))
	}

	go s.reader(connID, conn)
	go s.pinger(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, protocol.TypeCreateRoom,
		func(ctx context.Context, cc *ConnContext, _ struct{}) error {
			s.coord.CreateRoom(cc.ConnID)
			return nil
		},
	)

	Register(s.router, protocol.TypeListRooms,
		func(ctx context.Context, cc *ConnContext, _ struct{}) error {
			return cc.Conn.WriteJSON(protocol.Message(protocol.TypeRoomsList, s.coord.ListRooms()))
		},
	)

	Register(s.router, protocol.TypeJoinRoom,
		func(ctx context.Context, cc *ConnContext, req protocol.JoinRoomRequest) error {
			if err := s.coord.Join(cc.ConnID, req.RoomID, req.UserData); err != nil {
				// Sentinel errors carry the wire message verbatim.
				return cc.Conn.WriteJSON(protocol.Message(protocol.TypeJoinError,
					protocol.JoinErrorPayload{Message: err.Error()}))
			}
			return nil
		},
	)

	Register(s.router, protocol.TypeLeaveRoom,
		func(ctx context.Context, cc *ConnContext, req protocol.LeaveRoomRequest) error {
			s.coord.Leave(cc.ConnID, req.RoomID)
			return nil
		},
	)

	Register(s.router, protocol.TypeChatMessage,
		func(ctx context.Context, cc *ConnContext, req protocol.ChatMessageRequest) error {
			s.coord.Relay(cc.ConnID, req.RoomID, req.Message)
			return nil
		},
	)
}

func (s *WsServer) reader(connID string, conn *ClientConn) {
	defer func() {
		s.reg.Remove(connID)
		s.coord.Disconnect(connID)
		_ = conn.Close()
	}()

	conn.rawConn.SetReadLimit(maxMessageSize)
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{ConnID: connID, Conn: conn, Server: s}

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}
		s.dispatch(cc, data)
	}
}

func (s *WsServer) dispatch(cc *ConnContext, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		_ = cc.Conn.WriteJSON(protocol.Message(protocol.TypeError,
			protocol.ErrorPayload{Message: protocol.ErrInvalidJSON}))
		return
	}
	if env.Type == "" {
		_ = cc.Conn.WriteJSON(protocol.Message(protocol.TypeError,
			protocol.ErrorPayload{Message: protocol.ErrMissingType}))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	err := s.router.dispatch(ctx, cc, env)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, errUnknownType):
		_ = cc.Conn.WriteJSON(protocol.Message(protocol.TypeError,
			protocol.ErrorPayload{Message: protocol.ErrUnknownType, Type: env.Type}))
	case errors.Is(err, errBadPayload):
		_ = cc.Conn.WriteJSON(protocol.Message(protocol.TypeError,
			protocol.ErrorPayload{Message: protocol.ErrInvalidJSON}))
	default:
		zap.L().Warn("ws.dispatch", zap.String("type", env.Type), zap.Error(err))
	}
}

func (s *WsServer) pinger(conn *ClientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.ping(); err != nil {
			_ = conn.Close()
			return
		}
	}
}
