package room

import (
	"encoding/json"
	"errors"
	"time"

	"gameroomgo/internal/protocol"
)

// Capacity is the fixed two-player room size.
const Capacity = 2

var (
	ErrRoomNotFound = errors.New("room_not_found")
	ErrRoomFull     = errors.New("room_full")
	ErrMissingEmail = errors.New("missing_email")
)

// Phase is the room lifecycle state.
type Phase int

const (
	PhaseWaiting Phase = iota // 0-1 members, game not started
	PhaseActive               // 2 members, game clock running
	PhaseEnded                // terminal, outcome recorded
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "ACTIVE"
	case PhaseEnded:
		return "ENDED"
	default:
		return "WAITING"
	}
}

// Member is one party inside a room. ConnID is empty while the party is
// disconnected; it is rebound on rejoin and never persisted.
type Member struct {
	Email    string
	ConnID   string
	UserData protocol.UserData
}

// Room aggregates membership, the immutable challenge blob and the phase.
// Members keeps join order.
type Room struct {
	ID        string
	Challenge json.RawMessage
	Phase     Phase
	Members   []*Member
	StartedAt time.Time
}

func (r *Room) member(email string) *Member {
	for _, m := range r.Members {
		if m.Email == email {
			return m
		}
	}
	return nil
}

func (r *Room) memberByConn(connID string) *Member {
	if connID == "" {
		return nil
	}
	for _, m := range r.Members {
		if m.ConnID == connID {
			return m
		}
	}
	return nil
}

func (r *Room) users() []protocol.UserData {
	out := make([]protocol.UserData, 0, len(r.Members))
	for _, m := range r.Members {
		out = append(out, m.UserData)
	}
	return out
}

// MatchRecord is the append-only history entry archived when a room ends.
type MatchRecord struct {
	RoomID    string
	Winner    string
	Loser     string
	Reason    string
	Challenge json.RawMessage
	EndedAt   time.Time
}

// Snapshot is the durable view of the live room table. Connection IDs are
// deliberately absent; a member must rejoin to become reachable again.
type Snapshot struct {
	Rooms []RoomState `json:"rooms"`
}

type RoomState struct {
	ID        string          `json:"id"`
	Challenge json.RawMessage `json:"challenge"`
	Started   bool            `json:"started"`
	Members   []MemberState   `json:"members"`
}

type MemberState struct {
	Email    string            `json:"email"`
	UserData protocol.UserData `json:"userData"`
}

// SnapshotSink receives a durable snapshot after every mutating event.
// Implementations must not block the caller.
type SnapshotSink interface {
	Offer(Snapshot)
}

// HistorySink receives the match record of every ended room.
// Implementations must not block the caller.
type HistorySink interface {
	Record(MatchRecord)
}
