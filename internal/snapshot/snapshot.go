// Package snapshot persists the live room table to Redis so a restarted
// process can pick its rooms back up. Writes are fire-and-forget; in-memory
// state stays authoritative when Redis is slow or down.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gameroomgo/internal/services/room"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key is the fixed well-known key holding the serialized room table.
const Key = "rooms:snapshot"

const writeTimeout = 1500 * time.Millisecond

// Writer consumes snapshots off a channel so the coordinator never waits on
// Redis. Only the newest pending snapshot matters; older ones are dropped.
type Writer struct {
	rdc *redis.Client
	ch  chan room.Snapshot
}

func NewWriter(rdc *redis.Client) *Writer {
	return &Writer{rdc: rdc, ch: make(chan room.Snapshot, 1)}
}

var _ room.SnapshotSink = (*Writer)(nil)

// Offer implements room.SnapshotSink. Latest-wins, never blocks.
func (w *Writer) Offer(s room.Snapshot) {
	select {
	case w.ch <- s:
	default:
		// A stale snapshot is still queued; replace it.
		select {
		case <-w.ch:
		default:
		}
		select {
		case w.ch <- s:
		default:
		}
	}
}

// Run drains the channel until ctx is done.
func (w *Writer) Run(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-w.ch:
				w.writeOnce(ctx, s)
			}
		}
	}()
}

func (w *Writer) writeOnce(ctx context.Context, s room.Snapshot) {
	data, err := json.Marshal(s)
	if err != nil {
		zap.L().Error("snapshot.marshal", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := w.rdc.Set(ctx, Key, data, 0).Err(); err != nil {
		zap.L().Warn("snapshot.write", zap.Error(err))
	}
}

// Load reads the snapshot key at startup. A missing key simply means a
// fresh start; ok reports whether a snapshot was found.
func Load(ctx context.Context, rdc *redis.Client) (room.Snapshot, bool, error) {
	data, err := rdc.Get(ctx, Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return room.Snapshot{}, false, nil
		}
		return room.Snapshot{}, false, err
	}
	var s room.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return room.Snapshot{}, false, err
	}
	return s, true, nil
}
