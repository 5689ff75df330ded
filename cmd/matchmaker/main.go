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

	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/config"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/matchmaker"
	"github.com/wordbattle/duel-server-go/internal/redis"
	"github.com/wordbattle/duel-server-go/internal/words"
)

// The matchmaker is a single consumer: run exactly one instance per queue.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	store := game.NewStore(redisClient, words.Random)
	presence := matchmaker.NewPresence(redisClient, cfg.PresenceTTL())
	queue := matchmaker.NewQueue(redisClient)
	eventBus := bus.New(redisClient)

	scheduler := matchmaker.NewScheduler(
		queue, presence, store, eventBus,
		clockwork.NewRealClock(),
		cfg.GameDurationSeconds, cfg.SecondPopWait(),
	)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down matchmaker")
		cancel()
	}()

	scheduler.Run(ctx)
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
