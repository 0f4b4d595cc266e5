package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Empty address means the in-memory store; set for a shared Redis.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DayPhaseDuration   int `env:"DAY_PHASE_DURATION" envDefault:"180"`   // seconds
	NightPhaseDuration int `env:"NIGHT_PHASE_DURATION" envDefault:"60"`  // seconds
	VotePhaseDuration  int `env:"VOTE_PHASE_DURATION" envDefault:"60"`   // seconds

	AdminUser string `env:"ADMIN_USER"`
	AdminPass string `env:"ADMIN_PASS"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return c, nil
}
