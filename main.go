package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameroomgo/internal/config"
	"gameroomgo/internal/database/db_client"
	"gameroomgo/internal/history"
	"gameroomgo/internal/http/http_server"
	"gameroomgo/internal/redis/redis_client"
	"gameroomgo/internal/registry"
	"gameroomgo/internal/services/challenge"
	"gameroomgo/internal/services/room"
	"gameroomgo/internal/snapshot"
	"gameroomgo/internal/ws"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (room snapshot store)
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres (match history archive)
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	recorder := history.NewRecorder(pgDb)
	if err := recorder.EnsureSchema(ctx); err != nil {
		Log.Fatal("history-schema", zap.Error(err))
	}
	recorder.Run(ctx)

	// 5. Challenge pool
	challenges, err := challenge.NewService()
	if err != nil {
		Log.Fatal("challenge-pool", zap.Error(err))
	}

	// 6. Background: best-effort room snapshot writer
	snapWriter := snapshot.NewWriter(redisClient)
	snapWriter.Run(ctx)

	// 7. Room coordinator + live connection registry
	reg := registry.NewRegistry()
	presence := registry.NewPresence()
	coordinator := room.NewCoordinator(reg, presence, challenges, snapWriter, recorder,
		time.Duration(cfg.GameDurationSeconds)*time.Second)

	// Restore rooms persisted by a previous run; members must rejoin.
	if snap, ok, err := snapshot.Load(ctx, redisClient); err != nil {
		Log.Warn("snapshot-load", zap.Error(err))
	} else if ok {
		coordinator.Restore(snap)
	}

	// 8. Initialize the WS server
	wsSrv := ws.NewWsServer(reg, coordinator)

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, coordinator, recorder)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
