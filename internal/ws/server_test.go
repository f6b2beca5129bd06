package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gameroomgo/internal/protocol"
	"gameroomgo/internal/registry"
	"gameroomgo/internal/services/challenge"
	"gameroomgo/internal/services/room"
	"gameroomgo/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSnapshots struct{}

func (noopSnapshots) Offer(room.Snapshot) {}

type noopHistory struct{}

func (noopHistory) Record(room.MatchRecord) {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	challenges, err := challenge.NewService()
	require.NoError(t, err)

	reg := registry.NewRegistry()
	presence := registry.NewPresence()
	coord := room.NewCoordinator(reg, presence, challenges, noopSnapshots{}, noopHistory{}, time.Minute)
	wsSrv := ws.NewWsServer(reg, coord)

	engine := gin.New()
	engine.GET("/ws", wsSrv.Handle)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// waitFor reads frames until one of the wanted type arrives. Interleaved
// rooms_list broadcasts make strict ordering assertions brittle.
func waitFor(t *testing.T, conn *websocket.Conn, msgType string) frame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %q", msgType)
		if f.Type == msgType {
			return f
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(protocol.Message(msgType, payload)))
}

func TestWelcomeCarriesConnectionID(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	f := waitFor(t, conn, protocol.TypeWelcome)
	var w protocol.WelcomePayload
	require.NoError(t, json.Unmarshal(f.Payload, &w))
	assert.NotEmpty(t, w.ConnectionID)
}

func TestMalformedTraffic(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{"unparseable body", "{not json", protocol.ErrInvalidJSON},
		{"missing type", `{"payload":{}}`, protocol.ErrMissingType},
		{"unknown type", `{"type":"bogus"}`, protocol.ErrUnknownType},
		{"bad payload shape", `{"type":"join_room","payload":[1,2]}`, protocol.ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, srv)
			waitFor(t, conn, protocol.TypeWelcome)

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
			f := waitFor(t, conn, protocol.TypeError)
			var e protocol.ErrorPayload
			require.NoError(t, json.Unmarshal(f.Payload, &e))
			assert.Equal(t, tt.wantMsg, e.Message)
			if tt.wantMsg == protocol.ErrUnknownType {
				assert.Equal(t, "bogus", e.Type)
			}
		})
	}
}

func TestJoinErrorsOnTheWire(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)
	waitFor(t, conn, protocol.TypeWelcome)

	send(t, conn, protocol.TypeJoinRoom, protocol.JoinRoomRequest{
		RoomID:   "ZZZZ",
		UserData: protocol.UserData{"email": "p1@example.com"},
	})
	f := waitFor(t, conn, protocol.TypeJoinError)
	var e protocol.JoinErrorPayload
	require.NoError(t, json.Unmarshal(f.Payload, &e))
	assert.Equal(t, "room_not_found", e.Message)
}

// Full session: create, two joins, one disconnect, forfeit win.
func TestGameFlowOverWebsocket(t *testing.T) {
	srv := newTestServer(t)

	p1 := dial(t, srv)
	waitFor(t, p1, protocol.TypeWelcome)

	send(t, p1, protocol.TypeCreateRoom, nil)
	f := waitFor(t, p1, protocol.TypeRoomCreated)
	var created protocol.RoomCreatedPayload
	require.NoError(t, json.Unmarshal(f.Payload, &created))
	require.NotEmpty(t, created.RoomID)
	require.NotEmpty(t, created.Challenge)

	send(t, p1, protocol.TypeJoinRoom, protocol.JoinRoomRequest{
		RoomID:   created.RoomID,
		UserData: protocol.UserData{"email": "p1@example.com", "name": "P1"},
	})
	f = waitFor(t, p1, protocol.TypeJoinedRoom)
	var joined protocol.JoinedRoomPayload
	require.NoError(t, json.Unmarshal(f.Payload, &joined))
	assert.False(t, joined.Started)

	p2 := dial(t, srv)
	waitFor(t, p2, protocol.TypeWelcome)
	send(t, p2, protocol.TypeJoinRoom, protocol.JoinRoomRequest{
		RoomID:   created.RoomID,
		UserData: protocol.UserData{"email": "p2@example.com", "name": "P2"},
	})
	f = waitFor(t, p2, protocol.TypeJoinedRoom)
	require.NoError(t, json.Unmarshal(f.Payload, &joined))
	assert.True(t, joined.Started)
	assert.Len(t, joined.Users, 2)

	waitFor(t, p1, protocol.TypeUserJoined)
	waitFor(t, p1, protocol.TypeGameStarted)
	waitFor(t, p2, protocol.TypeGameStarted)

	// Chat relays to the opponent only.
	send(t, p1, protocol.TypeChatMessage, protocol.ChatMessageRequest{
		RoomID:  created.RoomID,
		Message: json.RawMessage(`{"text":"glhf"}`),
	})
	f = waitFor(t, p2, protocol.TypeChatMessage)
	var chat protocol.ChatMessagePayload
	require.NoError(t, json.Unmarshal(f.Payload, &chat))
	assert.Equal(t, "p1@example.com", chat.UserData.Email())

	// P1 drops; P2 wins by forfeit.
	require.NoError(t, p1.Close())
	f = waitFor(t, p2, protocol.TypeGameEnded)
	var ended protocol.GameEndedPayload
	require.NoError(t, json.Unmarshal(f.Payload, &ended))
	assert.Equal(t, "p2@example.com", ended.Winner.Email())
	assert.Equal(t, "p1@example.com", ended.Loser.Email())
	assert.Equal(t, protocol.ReasonOpponentLeft, ended.Reason)

	// The room is gone from the listing.
	send(t, p2, protocol.TypeListRooms, nil)
	f = waitFor(t, p2, protocol.TypeRoomsList)
	var listing protocol.RoomsListPayload
	require.NoError(t, json.Unmarshal(f.Payload, &listing))
	assert.Empty(t, listing.Rooms)
}
