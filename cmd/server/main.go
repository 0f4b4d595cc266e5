package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/mafianight/server/internal/config"
	"github.com/mafianight/server/internal/directory"
	"github.com/mafianight/server/internal/game"
	"github.com/mafianight/server/internal/httpapi"
	"github.com/mafianight/server/internal/kv"
	"github.com/mafianight/server/internal/room"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`mafianight - Mafia party game backend

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                   Port to listen on (default: 8080)
  REDIS_ADDR             Redis address, e.g. localhost:6379 (empty: in-memory store)
  REDIS_PASSWORD         Redis password (optional)
  REDIS_DB               Redis database index (default: 0)
  DAY_PHASE_DURATION     Day discussion length in seconds (default: 180)
  NIGHT_PHASE_DURATION   Night length in seconds (default: 60)
  VOTE_PHASE_DURATION    Vote length in seconds (default: 60)
  ADMIN_USER             Basic auth user for the role-revealing state route
  ADMIN_PASS             Basic auth password for the role-revealing state route
  DEBUG                  Enable debug logging (default: false)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("mafianight %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := zerologlog.Logger

	// State store: Redis when configured, in-process otherwise.
	var store kv.Store
	if cfg.RedisAddr != "" {
		r := kv.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.Ping(ctx); err != nil {
			cancel()
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
		}
		cancel()
		defer r.Close()
		store = r
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis state store")
	} else {
		store = kv.NewMemory()
		logger.Warn().Msg("REDIS_ADDR not set, using in-memory state store")
	}

	settings := game.Settings{
		DayPhaseDuration:   cfg.DayPhaseDuration,
		NightPhaseDuration: cfg.NightPhaseDuration,
		VotePhaseDuration:  cfg.VotePhaseDuration,
	}

	states := game.NewStateStore(store)
	engine := game.NewEngine(states, logger)
	nights := game.NewNightActions(states, logger)
	votes := game.NewVotes(states, logger)
	registry := directory.NewRegistry()
	rooms := room.NewService(store, registry, engine, settings, logger)

	// Gin setup with custom logger
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", c.Request.URL.Path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := httpapi.New(engine, nights, votes, rooms, registry, logger)
	var admin gin.Accounts
	if cfg.AdminUser != "" && cfg.AdminPass != "" {
		admin = gin.Accounts{cfg.AdminUser: cfg.AdminPass}
	}
	api.Register(r, admin)

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
