package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/arena"
	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/config"
	"github.com/wordbattle/duel-server-go/internal/database"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/gateway"
	"github.com/wordbattle/duel-server-go/internal/handler"
	"github.com/wordbattle/duel-server-go/internal/matchmaker"
	"github.com/wordbattle/duel-server-go/internal/middleware"
	"github.com/wordbattle/duel-server-go/internal/redis"
	"github.com/wordbattle/duel-server-go/internal/repository"
	"github.com/wordbattle/duel-server-go/internal/words"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	matchRepo := repository.NewMatchRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	eventBus := bus.New(redisClient)
	store := game.NewStore(redisClient, words.Random)
	presence := matchmaker.NewPresence(redisClient, cfg.PresenceTTL())
	queue := matchmaker.NewQueue(redisClient)
	completer := arena.NewCompleter(store, db, matchRepo, userRepo, eventBus)

	hub := gateway.NewHub()
	wsService := gateway.NewService(hub, store, presence, queue, eventBus)

	relayCtx, relayCancel := context.WithCancel(context.Background())
	defer relayCancel()
	relay := gateway.NewRelay(eventBus, hub)
	go relay.Run(relayCtx)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthTokenSecret)
	gameHandler := handler.NewGameHandler(queue, presence, store, completer, userRepo)
	leaderboardHandler := handler.NewLeaderboardHandler(userRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Get("/leaderboard", leaderboardHandler.ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Mount("/", gameHandler.Routes())
		r.Get("/ws", wsService.ServeWS)
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	relayCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
