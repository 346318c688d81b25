package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studyroom/internal/cache"
	"studyroom/internal/config"
	"studyroom/internal/coordinator"
	"studyroom/internal/events"
	"studyroom/internal/repository"
	"studyroom/internal/service"
	"studyroom/internal/transport/rest"
	"studyroom/internal/transport/ws"
)

// @title Study Room API
// @version 1.0
// @description Shared pomodoro study rooms with chat and a live timer
// @host localhost:5000
// @BasePath /v1
func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()

	// Storage
	store, closeStore := openStorage(ctx, cfg)
	defer closeStore()

	// Redis connection
	rdb, closeRedis := openRedis(ctx, cfg)
	defer closeRedis()

	// Room event feed
	notifier, err := events.NewPublisher(events.DefaultConfig(cfg.NATSURL))
	if err != nil {
		log.Warn().Err(err).Msg("event feed unavailable, continuing without it")
		notifier = events.NopPublisher{}
	}
	defer notifier.Close()

	// Initialize caches
	leaderboard := cache.NewLeaderboardCache(rdb)
	presence := cache.NewPresenceCache(rdb)
	if err := presence.Reset(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to reset live counts")
	}

	// Initialize services
	clock := clockwork.NewRealClock()
	authSvc := service.NewAuthService(store.users, cfg.JWTSecret, cfg.TokenTTL)
	roomSvc := service.NewRoomService(store.rooms, store.users, cfg.Room.Limits)
	roomSvc.SetPresence(presence)
	chatSvc := service.NewChatService(store.chats, cfg.Room.HistoryLimit)
	statsSvc := service.NewStatsService(store.users, leaderboard, clock)
	accessSvc := service.NewAccessService(store.rooms)

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	defer wsHub.Close()

	// Room coordinator owns all live room state
	coord := coordinator.New(cfg.Room, clock, accessSvc, store.rooms, chatSvc, statsSvc)
	coord.SetPublisher(wsHub)
	coord.SetPresence(presence)
	coord.SetNotifier(notifier)

	runCtx, stopCoordinator := context.WithCancel(ctx)
	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		coord.Run(runCtx)
	}()

	// Create router with container
	container := &rest.Container{
		AuthService: authSvc,
		RoomService: roomSvc,
		ChatService: chatSvc,
		Leaderboard: leaderboard,
		Coordinator: coord,
		WSHub:       wsHub,
		CORSOrigins: cfg.CORSOrigins,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           rest.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.HTTPPort).
			Str("storage", cfg.Storage).
			Bool("events", cfg.NATSURL != "").
			Msg("server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stopCoordinator()
	<-coordDone
	if err := coord.Drain(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pending writes did not finish")
	}

	log.Info().Msg("server exited")
}

type storage struct {
	users repository.UserRepo
	rooms repository.RoomRepo
	chats repository.ChatRepo
}

// openStorage connects to MongoDB, or uses in-process maps when
// STORAGE=memory. Nothing survives a restart in memory mode.
func openStorage(ctx context.Context, cfg *config.Config) (*storage, func()) {
	if cfg.Storage == "memory" {
		log.Warn().Msg("using in-memory storage")
		return &storage{
			users: repository.NewMemoryUserRepo(),
			rooms: repository.NewMemoryRoomRepo(),
			chats: repository.NewMemoryChatRepo(),
		}, func() {}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")

	db := client.Database(cfg.MongoDatabase)
	users := repository.NewUserRepo(db)
	chats := repository.NewChatRepo(db)
	if err := users.EnsureIndexes(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to create user indexes")
	}
	if err := chats.EnsureIndexes(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to create chat indexes")
	}

	return &storage{users: users, rooms: repository.NewRoomRepo(db), chats: chats}, func() {
		client.Disconnect(context.Background())
	}
}

// openRedis connects to Redis. In memory mode an embedded server is started
// instead so the binary runs with no external services.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, func()) {
	addr := cfg.RedisAddr
	var embedded *miniredis.Miniredis
	if cfg.Storage == "memory" {
		var err error
		if embedded, err = miniredis.Run(); err != nil {
			log.Fatal().Err(err).Msg("failed to start embedded redis")
		}
		addr = embedded.Addr()
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("failed to ping Redis")
	}
	log.Info().Str("addr", addr).Msg("connected to Redis")

	return rdb, func() {
		rdb.Close()
		if embedded != nil {
			embedded.Close()
		}
	}
}
