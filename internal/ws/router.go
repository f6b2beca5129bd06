package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"gameroomgo/internal/protocol"
)

// Dispatch outcomes the server maps onto wire errors.
var (
	errUnknownType = errors.New("unknown_type")
	errBadPayload  = errors.New("invalid_payload")
)

// internal (untyped) handler signature. Handlers write their own replies;
// the returned error only covers routing-level failures.
type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) error

// ConnContext carries per-connection data into handlers.
type ConnContext struct {
	ConnID string
	Conn   *ClientConn
	Server *WsServer
}

// Router keeps a map[type]handler, à-la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds a message type to a strongly-typed handler.
func Register[Req any](
	r *Router,
	msgType string,
	h func(ctx context.Context, c *ConnContext, req Req) error,
) {
	if msgType == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[msgType] = func(ctx context.Context, c *ConnContext, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return errBadPayload
			}
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, env protocol.Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		return errUnknownType
	}
	return h(ctx, c, env.Payload)
}
