package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hilayankonsky/movemix/internal/config"
	"github.com/hilayankonsky/movemix/internal/period"
	"github.com/hilayankonsky/movemix/internal/stats"
	"github.com/hilayankonsky/movemix/internal/storage"
	"github.com/hilayankonsky/movemix/internal/store"
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	env        string
	configPath string

	cfg     *config.Config
	loc     *time.Location
	backend *storage.Backend
	store   *store.Store
	engine  *stats.Engine
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&c.env, "env", "development", "config section [dev | development | prod | production]")
	fs.StringVar(&c.configPath, "config", "./config.toml", "path for the TOML config file")
	return fs
}

// open loads the config and opens the configured storage backend.
func (c *cli) open(ctx context.Context) error {
	cfg, err := config.Load(c.env, c.configPath)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, storage.OpenParams{
		Config:           cfg,
		RedisPassword:    os.Getenv("MOVEMIX_REDIS_PASS"),
		PostgresUser:     os.Getenv("MOVEMIX_PG_USER"),
		PostgresPassword: os.Getenv("MOVEMIX_PG_PASS"),
	})
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.loc = loc
	c.backend = backend
	c.store = store.New(backend.Persistence, store.WithKey(cfg.StorageKey))
	c.engine = stats.NewEngine(c.store, time.Now, loc)
	return nil
}

func (c *cli) close() {
	if c.backend == nil {
		return
	}
	if err := c.backend.Close(); err != nil {
		fmt.Fprintf(c.stderr, "close storage: %s\n", err)
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) today() string {
	return period.Today(time.Now().In(c.loc))
}

// visited reports the flags that were given explicitly on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}
