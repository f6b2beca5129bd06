package room

import (
	"crypto/rand"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"gameroomgo/internal/protocol"
	"gameroomgo/internal/registry"
	"gameroomgo/internal/services/challenge"

	"go.uber.org/zap"
)

// ICoordinator is the room lifecycle state machine. Mutating operations
// perform their own replies and broadcasts through the connection registry;
// callers only map sentinel errors onto the wire.
type ICoordinator interface {
	CreateRoom(connID string) string
	ListRooms() protocol.RoomsListPayload
	Join(connID, roomID string, user protocol.UserData) error
	Leave(connID, roomID string)
	Disconnect(connID string)
	Relay(connID, roomID string, message json.RawMessage)
	Restore(snap Snapshot)
}

type coordinator struct {
	mu    sync.Mutex
	rooms map[string]*Room

	presence   *registry.Presence
	fan        *fanout
	challenges *challenge.Service
	snapshots  SnapshotSink
	history    HistorySink

	gameDuration time.Duration
}

var _ ICoordinator = (*coordinator)(nil)

func NewCoordinator(
	reg *registry.Registry,
	presence *registry.Presence,
	challenges *challenge.Service,
	snapshots SnapshotSink,
	history HistorySink,
	gameDuration time.Duration,
) ICoordinator {
	return &coordinator{
		rooms:        make(map[string]*Room),
		presence:     presence,
		fan:          &fanout{reg: reg},
		challenges:   challenges,
		snapshots:    snapshots,
		history:      history,
		gameDuration: gameDuration,
	}
}

// ---------------------------------------------------------------------------
//  Operations
// ---------------------------------------------------------------------------

func (c *coordinator) CreateRoom(connID string) string {
	c.mu.Lock()
	id := c.newRoomIDLocked()
	r := &Room{
		ID:        id,
		Challenge: c.challenges.Random(),
		Phase:     PhaseWaiting,
	}
	c.rooms[id] = r
	created := protocol.RoomCreatedPayload{RoomID: id, Challenge: r.Challenge}
	listing := c.listingLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.fan.send([]delivery{{connID, protocol.Message(protocol.TypeRoomCreated, created)}})
	c.fan.broadcastAll(protocol.Message(protocol.TypeRoomsList, listing))
	c.snapshots.Offer(snap)

	zap.L().Info("room.created", zap.String("room_id", id))
	return id
}

func (c *coordinator) ListRooms() protocol.RoomsListPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listingLocked()
}

func (c *coordinator) Join(connID, roomID string, user protocol.UserData) error {
	email := user.Email()
	if email == "" {
		return ErrMissingEmail
	}

	c.mu.Lock()
	r, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return ErrRoomNotFound
	}

	// Rejoin: same identity on a new connection. Rebind the handle, keep
	// membership order, stay silent towards the peer.
	if m := r.member(email); m != nil {
		m.ConnID = connID
		m.UserData = user
		c.presence.Bind(connID, roomID, email)
		reply := c.roomSnapshotLocked(r)
		listing := c.listingLocked()
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.fan.send([]delivery{{connID, protocol.Message(protocol.TypeJoinedRoom, reply)}})
		c.fan.broadcastAll(protocol.Message(protocol.TypeRoomsList, listing))
		c.snapshots.Offer(snap)

		zap.L().Info("room.rejoined", zap.String("room_id", roomID), zap.String("email", email))
		return nil
	}

	if len(r.Members) >= Capacity {
		c.mu.Unlock()
		return ErrRoomFull
	}

	m := &Member{Email: email, ConnID: connID, UserData: user}
	r.Members = append(r.Members, m)
	c.presence.Bind(connID, roomID, email)

	started := false
	if len(r.Members) == Capacity && r.Phase == PhaseWaiting {
		r.Phase = PhaseActive
		r.StartedAt = time.Now()
		started = true
	}

	reply := c.roomSnapshotLocked(r)
	users := r.users()
	var out []delivery
	out = append(out, delivery{connID, protocol.Message(protocol.TypeJoinedRoom, reply)})
	for _, peer := range r.Members {
		if peer.Email == email || peer.ConnID == "" {
			continue
		}
		out = append(out, delivery{peer.ConnID, protocol.Message(protocol.TypeUserJoined,
			protocol.UserJoinedPayload{UserData: user, Users: users})})
	}
	var startMsgs []delivery
	if started {
		payload := protocol.GameStartedPayload{DurationSeconds: int(c.gameDuration.Seconds())}
		for _, peer := range r.Members {
			if peer.ConnID == "" {
				continue
			}
			startMsgs = append(startMsgs, delivery{peer.ConnID,
				protocol.Message(protocol.TypeGameStarted, payload)})
		}
	}
	listing := c.listingLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.fan.send(out)
	c.fan.broadcastAll(protocol.Message(protocol.TypeRoomsList, listing))
	c.fan.send(startMsgs)
	c.snapshots.Offer(snap)

	zap.L().Info("room.joined",
		zap.String("room_id", roomID),
		zap.String("email", email),
		zap.Bool("started", started))
	return nil
}

// Leave handles an explicit leave_room request from a connection.
func (c *coordinator) Leave(connID, roomID string) {
	c.removeMember(connID, roomID, true)
}

// Disconnect handles a connection closing without an explicit leave. The
// presence index resolves which room (if any) owned the connection.
func (c *coordinator) Disconnect(connID string) {
	defer c.presence.Unbind(connID)
	loc, ok := c.presence.Lookup(connID)
	if !ok {
		return
	}
	c.removeMember(connID, loc.RoomID, false)
}

// Relay passes an in-room event through to the other members, tagged with
// the sender's profile. Unknown rooms are a silent no-op; any phase is fine.
func (c *coordinator) Relay(connID, roomID string, message json.RawMessage) {
	c.mu.Lock()
	r, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return
	}
	var sender protocol.UserData
	senderEmail := ""
	if m := r.memberByConn(connID); m != nil {
		sender = m.UserData
		senderEmail = m.Email
	}
	var out []delivery
	for _, peer := range r.Members {
		if peer.Email == senderEmail || peer.ConnID == "" {
			continue
		}
		out = append(out, delivery{peer.ConnID, protocol.Message(protocol.TypeChatMessage,
			protocol.ChatMessagePayload{UserData: sender, Message: message})})
	}
	c.mu.Unlock()

	c.fan.send(out)
}

// Restore seeds the live table from a durable snapshot. Every member comes
// back disconnected and must rejoin to become reachable.
func (c *coordinator) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rs := range snap.Rooms {
		r := &Room{ID: rs.ID, Challenge: rs.Challenge, Phase: PhaseWaiting}
		if rs.Started {
			r.Phase = PhaseActive
		}
		for _, ms := range rs.Members {
			r.Members = append(r.Members, &Member{Email: ms.Email, UserData: ms.UserData})
		}
		c.rooms[rs.ID] = r
	}
	zap.L().Info("room.restored", zap.Int("rooms", len(snap.Rooms)))
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

// removeMember is the shared tail of Leave and Disconnect. A missing room or
// a connection that is not a member is a no-op.
func (c *coordinator) removeMember(connID, roomID string, reply bool) {
	now := time.Now().UTC()

	c.mu.Lock()
	r, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return
	}
	m := r.memberByConn(connID)
	if m == nil {
		c.mu.Unlock()
		return
	}

	kept := r.Members[:0]
	for _, x := range r.Members {
		if x != m {
			kept = append(kept, x)
		}
	}
	r.Members = kept
	c.presence.Unbind(connID)

	var out []delivery
	var rec *MatchRecord

	if r.Phase == PhaseActive && len(r.Members) >= 1 {
		// Forfeit: the sole remaining member wins.
		r.Phase = PhaseEnded
		winner := r.Members[0]
		rec = &MatchRecord{
			RoomID:    r.ID,
			Winner:    winner.Email,
			Loser:     m.Email,
			Reason:    protocol.ReasonOpponentLeft,
			Challenge: r.Challenge,
			EndedAt:   now,
		}
		ended := protocol.GameEndedPayload{
			Winner: winner.UserData,
			Loser:  m.UserData,
			Reason: protocol.ReasonOpponentLeft,
		}
		for _, peer := range r.Members {
			if peer.ConnID == "" {
				continue
			}
			out = append(out, delivery{peer.ConnID, protocol.Message(protocol.TypeGameEnded, ended)})
			c.presence.Unbind(peer.ConnID)
		}
		if reply {
			leaverView := ended
			leaverView.Reason = protocol.ReasonYouLeft
			out = append(out, delivery{connID, protocol.Message(protocol.TypeGameEnded, leaverView)})
		}
		delete(c.rooms, r.ID)
	} else {
		// Waiting room, or both players of a live game are gone at once:
		// no outcome, just membership bookkeeping.
		users := r.users()
		for _, peer := range r.Members {
			if peer.ConnID == "" {
				continue
			}
			out = append(out, delivery{peer.ConnID, protocol.Message(protocol.TypeUserLeft,
				protocol.UserLeftPayload{UserData: m.UserData, Users: users})})
		}
		if reply {
			out = append(out, delivery{connID, protocol.Message(protocol.TypeLeftRoom,
				protocol.LeftRoomPayload{RoomID: r.ID})})
		}
		if len(r.Members) == 0 {
			delete(c.rooms, r.ID)
		}
	}

	listing := c.listingLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.fan.send(out)
	c.fan.broadcastAll(protocol.Message(protocol.TypeRoomsList, listing))
	c.snapshots.Offer(snap)
	if rec != nil {
		c.history.Record(*rec)
		zap.L().Info("room.ended",
			zap.String("room_id", rec.RoomID),
			zap.String("winner", rec.Winner),
			zap.String("loser", rec.Loser))
	}
}

func (c *coordinator) roomSnapshotLocked(r *Room) protocol.JoinedRoomPayload {
	return protocol.JoinedRoomPayload{
		RoomID:    r.ID,
		Users:     r.users(),
		Challenge: r.Challenge,
		Started:   r.Phase != PhaseWaiting,
	}
}

func (c *coordinator) listingLocked() protocol.RoomsListPayload {
	out := protocol.RoomsListPayload{Rooms: make([]protocol.RoomSummary, 0, len(c.rooms))}
	for _, r := range c.rooms {
		out.Rooms = append(out.Rooms, protocol.RoomSummary{
			RoomID:    r.ID,
			UserCount: len(r.Members),
			Challenge: r.Challenge,
		})
	}
	sort.Slice(out.Rooms, func(i, j int) bool { return out.Rooms[i].RoomID < out.Rooms[j].RoomID })
	return out
}

func (c *coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{Rooms: make([]RoomState, 0, len(c.rooms))}
	for _, r := range c.rooms {
		rs := RoomState{
			ID:        r.ID,
			Challenge: r.Challenge,
			Started:   r.Phase != PhaseWaiting,
			Members:   make([]MemberState, 0, len(r.Members)),
		}
		for _, m := range r.Members {
			rs.Members = append(rs.Members, MemberState{Email: m.Email, UserData: m.UserData})
		}
		snap.Rooms = append(snap.Rooms, rs)
	}
	sort.Slice(snap.Rooms, func(i, j int) bool { return snap.Rooms[i].ID < snap.Rooms[j].ID })
	return snap
}

const roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newRoomIDLocked mints a short code unique among live rooms.
func (c *coordinator) newRoomIDLocked() string {
	for {
		buf := make([]byte, 4)
		_, _ = rand.Read(buf)
		for i := range buf {
			buf[i] = roomIDAlphabet[int(buf[i])%len(roomIDAlphabet)]
		}
		id := string(buf)
		if _, exists := c.rooms[id]; !exists {
			return id
		}
	}
}
