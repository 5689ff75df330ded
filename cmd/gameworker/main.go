package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/arena"
	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/config"
	"github.com/wordbattle/duel-server-go/internal/database"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/jobs"
	"github.com/wordbattle/duel-server-go/internal/redis"
	"github.com/wordbattle/duel-server-go/internal/repository"
	"github.com/wordbattle/duel-server-go/internal/timer"
	"github.com/wordbattle/duel-server-go/internal/words"
)

// The game worker runs countdown timers for every active room, persists
// finished matches and reaps rooms whose completion was lost.
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

	pingCtx, pingCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	pingCancel()
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
	completer := arena.NewCompleter(store, db, matchRepo, userRepo, eventBus)
	timerService := timer.NewService(store, eventBus, completer, clockwork.NewRealClock())

	reaper := jobs.NewReaperJob(store, completer, config.ReaperInterval, config.ReaperGrace)
	reaper.Start()
	defer reaper.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down game worker")
		cancel()
	}()

	timerService.Run(ctx)
	timerService.Wait()
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
