package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	AuthTokenSecret      string `env:"AUTH_TOKEN_SECRET,required"`
	GameDurationSeconds  int    `env:"GAME_DURATION_SECONDS" envDefault:"300"`
	PresenceTTLSeconds   int    `env:"PRESENCE_TTL_SECONDS" envDefault:"120"`
	SecondPopWaitSeconds int    `env:"SECOND_POP_WAIT_SECONDS" envDefault:"2"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) GameDuration() time.Duration {
	return time.Duration(c.GameDurationSeconds) * time.Second
}

func (c *Config) PresenceTTL() time.Duration {
	return time.Duration(c.PresenceTTLSeconds) * time.Second
}

func (c *Config) SecondPopWait() time.Duration {
	return time.Duration(c.SecondPopWaitSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
