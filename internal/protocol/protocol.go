// Package protocol defines the websocket wire format shared by the
// transport layer and the room coordinator.
package protocol

import "encoding/json"

// Envelope wraps every inbound WS frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"` // arbitrary JSON object
}

// Outbound is the server-side counterpart; Payload is marshalled in place.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func Message(t string, payload any) Outbound {
	return Outbound{Type: t, Payload: payload}
}

// Inbound message types.
const (
	TypeCreateRoom  = "create_room"
	TypeListRooms   = "list_rooms"
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeChatMessage = "chat_message"
)

// Outbound message types.
const (
	TypeWelcome     = "welcome"
	TypeError       = "error"
	TypeRoomCreated = "room_created"
	TypeRoomsList   = "rooms_list"
	TypeJoinedRoom  = "joined_room"
	TypeJoinError   = "join_error"
	TypeUserJoined  = "user_joined"
	TypeLeftRoom    = "left_room"
	TypeUserLeft    = "user_left"
	TypeGameStarted = "game_started"
	TypeGameEnded   = "game_ended"
)

// Game outcome reason codes.
const (
	ReasonOpponentLeft = "opponent_left"
	ReasonYouLeft      = "you_left"
)

// Error messages for malformed traffic.
const (
	ErrInvalidJSON = "invalid_json"
	ErrMissingType = "missing_type"
	ErrUnknownType = "unknown_type"
)

// UserData is the opaque profile blob a player presents on join. Only the
// email key is interpreted by the server; everything else passes through.
type UserData map[string]any

func (u UserData) Email() string {
	s, _ := u["email"].(string)
	return s
}

// ──────────────────────────── Request / Response DTOs ─────────────────────────

type WelcomePayload struct {
	ConnectionID string `json:"connectionId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"` // echoed for unknown_type
}

type RoomSummary struct {
	RoomID    string          `json:"roomId"`
	UserCount int             `json:"userCount"`
	Challenge json.RawMessage `json:"challenge"`
}

type RoomsListPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

type RoomCreatedPayload struct {
	RoomID    string          `json:"roomId"`
	Challenge json.RawMessage `json:"challenge"`
}

type JoinRoomRequest struct {
	RoomID   string   `json:"roomId"`
	UserData UserData `json:"userData"`
}

type JoinedRoomPayload struct {
	RoomID    string          `json:"roomId"`
	Users     []UserData      `json:"users"`
	Challenge json.RawMessage `json:"challenge"`
	Started   bool            `json:"started"`
}

type JoinErrorPayload struct {
	Message string `json:"message"`
}

type UserJoinedPayload struct {
	UserData UserData   `json:"userData"`
	Users    []UserData `json:"users"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
}

type LeftRoomPayload struct {
	RoomID string `json:"roomId"`
}

type UserLeftPayload struct {
	UserData UserData   `json:"userData"`
	Users    []UserData `json:"users"`
}

type GameStartedPayload struct {
	DurationSeconds int `json:"durationSeconds"`
}

type GameEndedPayload struct {
	Winner UserData `json:"winner"`
	Loser  UserData `json:"loser"`
	Reason string   `json:"reason"`
}

type ChatMessageRequest struct {
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

type ChatMessagePayload struct {
	UserData UserData        `json:"userData,omitempty"`
	Message  json.RawMessage `json:"message"`
}
