package main

import (
	"context"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/hilayankonsky/movemix/internal"
	"github.com/hilayankonsky/movemix/internal/config"
	"github.com/hilayankonsky/movemix/internal/logging"

	log "github.com/sirupsen/logrus"
)

// secrets never live in config.toml
type secrets struct {
	sentryDSN        string
	honeycombKey     string
	redisPassword    string
	postgresUser     string
	postgresPassword string
}

func secretsFromEnv() secrets {
	return secrets{
		sentryDSN:        os.Getenv("SENTRY_DSN"),
		honeycombKey:     os.Getenv("HONEYCOMB_API_KEY"),
		redisPassword:    os.Getenv("MOVEMIX_REDIS_PASS"),
		postgresUser:     os.Getenv("MOVEMIX_PG_USER"),
		postgresPassword: os.Getenv("MOVEMIX_PG_PASS"),
	}
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config [%s]: %s", *configPath, err)
	}

	sec := secretsFromEnv()
	closeLogs := logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sec.sentryDSN,
		SentryServerName: "movemix-service",
	})
	defer closeLogs()

	log.WithFields(log.Fields{
		"env":     cfg.Environment,
		"port":    cfg.Port,
		"storage": cfg.StorageBackend,
	}).Info("movemix service starting")
	warnMissingSecrets(cfg, sec)

	version := buildVersion()
	log.Debugf("running version: %s", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := internal.NewServer(ctx, internal.NewServerParams{
		Config:           cfg,
		VersionInfo:      version,
		RedisPassword:    sec.redisPassword,
		PostgresUser:     sec.postgresUser,
		PostgresPassword: sec.postgresPassword,
	})
	if err != nil {
		log.Errorf("new server: %s", err)
		return
	}

	server.Serve(cfg.Host, cfg.Port)

	<-ctx.Done()
	log.Warn("shutdown signal received")
	server.GracefulShutdown()
}

func warnMissingSecrets(cfg *config.Config, sec secrets) {
	switch {
	case cfg.StorageBackend == config.BackendRedis && sec.redisPassword == "":
		log.Warn("redis backend without a password, set MOVEMIX_REDIS_PASS if the server needs one")
	case cfg.StorageBackend == config.BackendPostgres && sec.postgresUser == "":
		log.Warn("postgres backend without MOVEMIX_PG_USER, falling back to the driver defaults")
	}
	if cfg.TracingEnabled && sec.honeycombKey == "" {
		log.Warn("tracing enabled but HONEYCOMB_API_KEY is not set")
	}
	if cfg.SentryEnabled && sec.sentryDSN == "" {
		log.Warn("sentry enabled but SENTRY_DSN is not set")
	}
}

// buildVersion prefers the vcs stamp go build embeds, and falls back to asking git
// when running from a checkout with go run.
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}

	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
