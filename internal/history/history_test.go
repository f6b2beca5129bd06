package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gameroomgo/internal/services/room"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() room.MatchRecord {
	return room.MatchRecord{
		RoomID:    "AB12",
		Winner:    "p2@example.com",
		Loser:     "p1@example.com",
		Reason:    "opponent_left",
		Challenge: json.RawMessage(`{"title":"Two Sum"}`),
		EndedAt:   time.Date(2025, 7, 27, 16, 5, 5, 0, time.UTC),
	}
}

func TestPersist(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := testRecord()
	mock.ExpectExec("INSERT INTO matches").
		WithArgs(rec.RoomID, rec.Winner, rec.Loser, rec.Reason, []byte(rec.Challenge), rec.EndedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := NewRecorder(db)
	require.NoError(t, r.persist(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDrainsRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := testRecord()
	mock.ExpectExec("INSERT INTO matches").
		WithArgs(rec.RoomID, rec.Winner, rec.Loser, rec.Reason, []byte(rec.Challenge), rec.EndedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRecorder(db)
	r.Run(ctx)
	r.Record(rec)

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecordNeverBlocks(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// No Run loop: fill the buffer past capacity and keep going.
	r := NewRecorder(db)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			r.Record(testRecord())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}

func TestListMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	endedAt := time.Date(2025, 7, 27, 16, 5, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"room_id", "winner", "loser", "reason", "ended_at"}).
		AddRow("AB12", "p2@example.com", "p1@example.com", "opponent_left", endedAt)
	mock.ExpectQuery("SELECT room_id, winner, loser, reason, ended_at").
		WithArgs(10, 0).
		WillReturnRows(rows)

	r := NewRecorder(db)
	out, err := r.ListMatches(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "AB12", out[0].RoomID)
	assert.Equal(t, "p2@example.com", out[0].Winner)
	assert.Equal(t, endedAt, out[0].EndedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS matches").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewRecorder(db)
	require.NoError(t, r.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
