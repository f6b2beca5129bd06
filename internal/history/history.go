// Package history archives finished games into Postgres. Records are
// append-only; the live room is already gone by the time a record arrives.
package history

import (
	"context"
	"database/sql"
	"time"

	"gameroomgo/internal/services/room"

	"go.uber.org/zap"
)

type MatchDTO struct {
	RoomID  string    `json:"room_id"`
	Winner  string    `json:"winner"`
	Loser   string    `json:"loser"`
	Reason  string    `json:"reason"`
	EndedAt time.Time `json:"ended_at" example:"2025-07-27T16:05:05Z"`
}

const schema = `
  CREATE TABLE IF NOT EXISTS matches (
    id         BIGSERIAL PRIMARY KEY,
    room_id    TEXT        NOT NULL,
    winner     TEXT        NOT NULL,
    loser      TEXT        NOT NULL,
    reason     TEXT        NOT NULL,
    challenge  JSONB,
    ended_at   TIMESTAMPTZ NOT NULL
  )`

// Recorder buffers match records through a channel so ending a game never
// waits on Postgres.
type Recorder struct {
	db *sql.DB
	ch chan room.MatchRecord
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db, ch: make(chan room.MatchRecord, 64)}
}

var _ room.HistorySink = (*Recorder)(nil)

// EnsureSchema creates the matches table on first boot.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Record implements room.HistorySink. Never blocks; a full buffer drops the
// record with a log line rather than stalling the coordinator.
func (r *Recorder) Record(m room.MatchRecord) {
	select {
	case r.ch <- m:
	default:
		zap.L().Warn("history.buffer_full", zap.String("room_id", m.RoomID))
	}
}

// Run persists queued records until ctx is done.
func (r *Recorder) Run(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-r.ch:
				if err := r.persist(ctx, m); err != nil {
					zap.L().Error("history.persist",
						zap.String("room_id", m.RoomID), zap.Error(err))
				}
			}
		}
	}()
}

func (r *Recorder) persist(ctx context.Context, m room.MatchRecord) error {
	const ins = `INSERT INTO matches (room_id, winner, loser, reason, challenge, ended_at)
	             VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, ins,
		m.RoomID, m.Winner, m.Loser, m.Reason, []byte(m.Challenge), m.EndedAt)
	return err
}

// ListMatches returns recent history, newest first.
func (r *Recorder) ListMatches(ctx context.Context, limit, offset int) ([]MatchDTO, error) {
	if limit == 0 {
		limit = 10
	}
	const q = `SELECT room_id, winner, loser, reason, ended_at
	             FROM matches ORDER BY ended_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]MatchDTO, 0, limit)
	for rows.Next() {
		var m MatchDTO
		if err := rows.Scan(&m.RoomID, &m.Winner, &m.Loser, &m.Reason, &m.EndedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
