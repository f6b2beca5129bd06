package room

import (
	"gameroomgo/internal/protocol"
	"gameroomgo/internal/registry"

	"go.uber.org/zap"
)

// delivery is one pending send, addressed by connection ID. Deliveries are
// collected while the coordinator lock is held and flushed after release so
// a slow receiver never stalls event processing.
type delivery struct {
	connID string
	msg    protocol.Outbound
}

type fanout struct {
	reg *registry.Registry
}

// send delivers each message best-effort. A registry miss means the
// connection died but was not pruned yet; it is skipped, never an error.
// Write failures are logged and swallowed so one bad connection cannot
// abort the rest of the batch.
func (f *fanout) send(ds []delivery) {
	for _, d := range ds {
		c, ok := f.reg.Get(d.connID)
		if !ok {
			continue
		}
		if err := c.WriteJSON(d.msg); err != nil {
			zap.L().Warn("fanout.send_failed",
				zap.String("conn_id", d.connID),
				zap.String("type", d.msg.Type),
				zap.Error(err))
		}
	}
}

// broadcastAll delivers one message to every live connection in the process.
// Used for the room-listing updates that follow membership changes.
func (f *fanout) broadcastAll(msg protocol.Outbound) {
	for id, c := range f.reg.Snapshot() {
		if err := c.WriteJSON(msg); err != nil {
			zap.L().Warn("fanout.broadcast_failed",
				zap.String("conn_id", id),
				zap.String("type", msg.Type),
				zap.Error(err))
		}
	}
}
