package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pastabin/cfg"
	"pastabin/svc/api"
	"pastabin/svc/cache"
	"pastabin/svc/db"
	"pastabin/svc/svc"
	"pastabin/svc/util"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var version = "unknown"

func main() {
	health := flag.Bool("health", false, "check the configured storage and exit")
	flag.Parse()

	if err := cfg.LoadEnvFile(); err != nil {
		util.Fatal().Err(err).Msg("failed to load env file")
	}
	c, err := cfg.Load()
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(c); err != nil {
		util.Fatal().Err(err).Msg("invalid configuration")
	}
	defer c.Wipe()

	if *health {
		os.Exit(healthCheck(c))
	}

	util.InitLog(c.LogLevel, c.Dev())
	util.Info().Str("version", version).Str("backend", c.StorageBackend).Msg("starting pastabin")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(c)
	if err != nil {
		util.Fatal().Err(err).Str("backend", c.StorageBackend).Msg("failed to open storage")
	}
	defer backend.Close()

	pasteSvc := svc.NewPaste(backend, util.NewIDCodec(nil), util.NewSecretGen(nil), svc.Opts{
		IDSize:     c.IDSize,
		SecretSize: c.SecretSize,
		Retries:    c.CreateRetries,
	})
	server := api.NewServer(c, api.NewDispatcher(pasteSvc, version, c.PublicURL))
	servers := []*api.Server{server}
	if c.AdminPort != "" {
		servers = append(servers, api.NewAdminServer(c, backend))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(s.Start)
	}
	if s, ok := backend.(*db.SQLite); ok {
		g.Go(func() error { return s.RunWALMaintenance(gctx, 0) })
		util.Info().Msg("WAL maintenance worker started")
	}
	g.Go(func() error {
		<-gctx.Done()
		util.Info().Msg("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				util.Error().Err(err).Str("addr", s.Addr()).Msg("server shutdown error")
			}
		}
		pasteSvc.Shutdown()
		return nil
	})
	if err := g.Wait(); err != nil {
		util.Error().Err(err).Msg("server failed")
		backend.Close()
		os.Exit(1)
	}
	util.Info().Msg("shutdown complete")
}

func openBackend(c *cfg.Cfg) (svc.Backend, error) {
	var (
		b   svc.Backend
		err error
	)
	switch c.StorageBackend {
	case cfg.BackendFS:
		var f *db.FS
		f, err = db.NewFS(c.StorageDir)
		b = f
	case cfg.BackendSQLite:
		var s *db.SQLite
		s, err = db.NewSQLiteWithConfig(c.DatabasePath, c.DBMaxOpenConns, c.DBMaxIdleConns, c.DBQueryTimeout)
		b = s
	case cfg.BackendRedis:
		var r *db.Redis
		r, err = db.NewRedis(c.RedisURL, c)
		b = r
	case cfg.BackendMemory:
		var l *cache.LRU
		l, err = cache.NewLRU(c.MemoryCapacity)
		b = l
	default:
		return nil, errors.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func healthCheck(c *cfg.Cfg) int {
	backend, err := openBackend(c)
	if err != nil {
		return 1
	}
	defer backend.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := backend.Ping(ctx); err != nil {
		return 1
	}
	return 0
}
